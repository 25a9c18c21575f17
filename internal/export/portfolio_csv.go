package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wonny/scanner/internal/contracts"
)

// PortfolioColumns is the position CSV header (weights in percent)
var PortfolioColumns = []string{
	"Identifier", "Ticker", "Name", "AssetClass", "Regime", "Score", "ConfidenceLabel",
	"WeightPct", "LiquidityRisk", "DollarVolume", "RawWeightPct", "LiquidityAdjustedPct",
}

// BuildPortfolio returns header + one row per position
func BuildPortfolio(p *contracts.Portfolio) [][]string {
	out := make([][]string, 0, len(p.Positions)+1)
	out = append(out, PortfolioColumns)
	for _, pos := range p.Positions {
		dv := ""
		if pos.DollarVolume != nil {
			dv = strconv.FormatFloat(*pos.DollarVolume, 'f', 0, 64)
		}
		out = append(out, []string{
			pos.Identifier,
			pos.Ticker,
			pos.Name,
			string(pos.AssetClass),
			string(pos.Regime),
			formatScore(pos.Score),
			string(pos.ConfidenceLabel),
			formatScore(pos.Weight * 100),
			strconv.FormatFloat(pos.LiquidityRisk, 'f', 3, 64),
			dv,
			formatScore(pos.RawWeight * 100),
			formatScore(pos.AdjustedWeight * 100),
		})
	}
	return out
}

// MetaPath returns the metadata path next to a portfolio CSV (x.csv → x_meta.json)
func MetaPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, ".csv") + "_meta.json"
}

// WritePortfolio writes the position CSV and the metadata JSON, both atomically
func WritePortfolio(csvPath string, p *contracts.Portfolio) error {
	if err := WriteAtomic(csvPath, BuildPortfolio(p)); err != nil {
		return fmt.Errorf("write portfolio csv: %w", err)
	}

	meta := struct {
		*contracts.Portfolio
		Positions int `json:"positions"`
	}{Portfolio: p, Positions: len(p.Positions)}

	return writeFileAtomic(MetaPath(csvPath), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("write portfolio meta: %w", err)
		}
		return nil
	})
}
