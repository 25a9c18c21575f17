package calibration

import (
	"fmt"
	"math"

	"github.com/wonny/scanner/internal/contracts"
)

// recommendations turns correlations into review hints.
// Risk is judged against negative returns, so its sign is flipped.
func recommendations(r *contracts.CalibrationReport) []string {
	recs := []string{}

	if score, ok := r.Correlation(contracts.ComponentScore); ok {
		switch {
		case math.Abs(score) < 0.1:
			recs = append(recs, "Score shows low correlation with returns: consider factor reweighting")
		case score < 0:
			recs = append(recs, "Score negatively correlated with returns: check factor directions")
		}
	}

	if opp, ok := r.Correlation(contracts.ComponentOpportunity); ok {
		switch {
		case opp > 0.3:
			recs = append(recs, "Opportunity factors show strong predictive power")
		case opp < 0.1:
			recs = append(recs, "Opportunity factors need improvement")
		}
	}

	if risk, ok := r.Correlation(contracts.ComponentRisk); ok {
		vsNegative := -risk
		switch {
		case vsNegative > 0.2:
			recs = append(recs, "Risk factors effectively predict negative returns")
		case vsNegative < 0:
			recs = append(recs, "Risk factors may be mis-specified")
		}
	}

	if r.SampleSize > 0 && r.HitRate < 0.5 {
		recs = append(recs, fmt.Sprintf("Low hit rate (%.1f%%): review entry conditions", r.HitRate*100))
	}

	return recs
}
