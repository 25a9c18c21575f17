package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/internal/contracts"
)

func samplePortfolio() *contracts.Portfolio {
	dv := 75_000_000.0
	return &contracts.Portfolio{
		RunID:             "run-1",
		EquityRegime:      contracts.RegimeNeutral,
		MaxEquityExposure: 0.7,
		MaxCryptoExposure: 0.1,
		Cash:              0.3,
		Positions: []contracts.PortfolioPosition{
			{
				Identifier: "US0378331005", Ticker: "AAPL", AssetClass: contracts.AssetStock,
				Regime: contracts.RegimeNeutral, Score: 142.5, ConfidenceLabel: contracts.ConfidenceHigh,
				DollarVolume: &dv, LiquidityRisk: 0.1, RawWeight: 0.6, AdjustedWeight: 0.54, Weight: 0.7,
			},
		},
	}
}

func TestBuildPortfolio(t *testing.T) {
	out := BuildPortfolio(samplePortfolio())

	require.Len(t, out, 2)
	assert.Equal(t, PortfolioColumns, out[0])
	assert.Equal(t, []string{
		"US0378331005", "AAPL", "", "stock", "neutral", "142.50", "HIGH",
		"70.00", "0.100", "75000000", "60.00", "54.00",
	}, out[1])
}

func TestWritePortfolio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "portfolio.csv")
	require.NoError(t, WritePortfolio(path, samplePortfolio()))

	assert.FileExists(t, path)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "portfolio_meta.json"), MetaPath(path))

	data, err := os.ReadFile(MetaPath(path))
	require.NoError(t, err)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "run-1", meta["run_id"])
	assert.Equal(t, 1.0, meta["positions"])
	assert.Equal(t, 0.3, meta["cash"])
}
