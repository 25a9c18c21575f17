package contracts

import (
	"strings"
	"time"
)

// AssetClass separates stock and crypto rows (different regime column)
type AssetClass string

const (
	AssetStock  AssetClass = "stock"
	AssetCrypto AssetClass = "crypto"
)

// InferAssetClass classifies a symbol: -USD/-EUR/-USDT suffix or the word CRYPTO → crypto
func InferAssetClass(symbol string, hints ...string) AssetClass {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, suffix := range []string{"-USD", "-EUR", "-USDT"} {
		if strings.HasSuffix(s, suffix) {
			return AssetCrypto
		}
	}
	for _, h := range append([]string{s}, hints...) {
		if strings.Contains(strings.ToUpper(h), "CRYPTO") {
			return AssetCrypto
		}
	}
	return AssetStock
}

// AssetRecord is one input row of a run
// ⭐ SSOT: S0 → S1 → S2 전달
type AssetRecord struct {
	Line       int        `json:"line"` // 1-based CSV line (header = 1)
	Identifier string     `json:"identifier"`
	ISIN       string     `json:"isin,omitempty"`
	Ticker     string     `json:"ticker,omitempty"`
	Name       string     `json:"name,omitempty"`
	Sector     string     `json:"sector,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	AssetClass AssetClass `json:"asset_class"`

	Close float64 `json:"close,omitempty"` // 0 = unknown

	// Market context columns
	RegimeHint  string   `json:"regime_hint,omitempty"`  // MarketRegimeStock / MarketRegimeCrypto
	MarketTrend *float64 `json:"market_trend,omitempty"` // trend200 of the benchmark

	ElliottSignal string `json:"elliott_signal,omitempty"`

	// Factors holds raw factor values; a missing value is absent (never NaN)
	Factors map[string]float64 `json:"factors"`

	AsOf time.Time `json:"as_of"`
}

// Factor returns a raw factor value
func (r *AssetRecord) Factor(name string) (float64, bool) {
	v, ok := r.Factors[name]
	return v, ok
}

// Clone returns a deep copy (factor map included)
func (r AssetRecord) Clone() AssetRecord {
	out := r
	out.Factors = make(map[string]float64, len(r.Factors))
	for k, v := range r.Factors {
		out.Factors[k] = v
	}
	if r.MarketTrend != nil {
		t := *r.MarketTrend
		out.MarketTrend = &t
	}
	return out
}

// RejectedRow is an input row that could not become an AssetRecord
type RejectedRow struct {
	Line       int    `json:"line"`
	Identifier string `json:"identifier,omitempty"`
	Reason     string `json:"reason"`
}

// NormalizedFactors holds 0-100 factor values for one asset.
// Every configured factor is present; Missing flags the ones filled with the neutral value.
type NormalizedFactors struct {
	Values  map[string]float64 `json:"values"`
	Missing map[string]bool    `json:"missing,omitempty"`
}

// Get returns a normalized value and whether it came from real input
func (n NormalizedFactors) Get(name string) (float64, bool) {
	v, ok := n.Values[name]
	if !ok {
		return 0, false
	}
	return v, !n.Missing[name]
}

// IsMissing reports whether a factor was absent in the raw input
func (n NormalizedFactors) IsMissing(name string) bool {
	if _, ok := n.Values[name]; !ok {
		return true
	}
	return n.Missing[name]
}

// MissingCount counts how many of names are missing
func (n NormalizedFactors) MissingCount(names []string) int {
	count := 0
	for _, name := range names {
		if n.IsMissing(name) {
			count++
		}
	}
	return count
}
