package contracts

import "time"

// Calibration components (correlation keys)
const (
	ComponentScore       = "score"
	ComponentOpportunity = "opportunity"
	ComponentRisk        = "risk"
	ComponentConfidence  = "confidence"
)

// RadarComponent returns the correlation key of a radar axis
func RadarComponent(axis string) string {
	return "radar_" + axis
}

// ExcludedCounts explains why window rows were not used
type ExcludedCounts struct {
	NoForwardReturn int `json:"no_forward_return"`
	MalformedRadar  int `json:"malformed_radar"`
}

// QuintileStat is the mean forward return of one score quintile (Q1 = lowest)
type QuintileStat struct {
	Quintile   int     `json:"quintile"`
	Count      int     `json:"count"`
	MinScore   float64 `json:"min_score"`
	MaxScore   float64 `json:"max_score"`
	MeanReturn float64 `json:"mean_return"`
}

// TopThreshold suggests the score cutoff of the top fraction on one date
type TopThreshold struct {
	Date        time.Time `json:"date"`
	TopFraction float64   `json:"top_fraction"`
	Threshold   float64   `json:"threshold"`
	Candidates  int       `json:"candidates"`
}

// CalibrationReport is the S6 result. Recommendation only: it never changes weights.
// ⭐ SSOT: S6 출력
type CalibrationReport struct {
	AsOf         time.Time `json:"as_of"`
	From         time.Time `json:"from"`
	LookbackDays int       `json:"lookback_days"`
	HorizonDays  int       `json:"horizon_days"`

	WindowRows int            `json:"window_rows"`
	SampleSize int            `json:"sample_size"`
	Excluded   ExcludedCounts `json:"excluded"`

	Correlations    map[string]float64 `json:"correlations"`
	HitRate         float64            `json:"hit_rate"`
	Quintiles       []QuintileStat     `json:"quintiles,omitempty"`
	Recommendations []string           `json:"recommendations"`
	TopThreshold    *TopThreshold      `json:"top_threshold,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Correlation returns one component correlation
func (r *CalibrationReport) Correlation(component string) (float64, bool) {
	v, ok := r.Correlations[component]
	return v, ok
}
