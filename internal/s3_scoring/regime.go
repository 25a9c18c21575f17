package s3_scoring

import (
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
)

// ResolveRegime picks the regime of a record.
// The regime column wins; otherwise the benchmark trend200 is classified.
func ResolveRegime(rec contracts.AssetRecord, th scoringconfig.TrendThresholds) contracts.Regime {
	if r, ok := contracts.ParseRegime(rec.RegimeHint); ok {
		return r
	}
	if rec.MarketTrend == nil {
		return contracts.RegimeNeutral
	}
	return ClassifyTrend(*rec.MarketTrend, th)
}

// ClassifyTrend: trend < bear_below → bear, trend >= bull_from → bull, else neutral
func ClassifyTrend(trend float64, th scoringconfig.TrendThresholds) contracts.Regime {
	switch {
	case trend < th.BearBelow:
		return contracts.RegimeBear
	case trend >= th.BullFrom:
		return contracts.RegimeBull
	default:
		return contracts.RegimeNeutral
	}
}
