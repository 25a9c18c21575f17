package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Regime is the market state driving blend weights
type Regime string

const (
	RegimeBull    Regime = "bull"
	RegimeNeutral Regime = "neutral"
	RegimeBear    Regime = "bear"
)

// ParseRegime accepts bull/neutral/bear in any case
func ParseRegime(s string) (Regime, bool) {
	switch Regime(strings.ToLower(strings.TrimSpace(s))) {
	case RegimeBull:
		return RegimeBull, true
	case RegimeNeutral:
		return RegimeNeutral, true
	case RegimeBear:
		return RegimeBear, true
	default:
		return "", false
	}
}

// ConfidenceLabel buckets the confidence score
type ConfidenceLabel string

const (
	ConfidenceLow  ConfidenceLabel = "LOW"
	ConfidenceMed  ConfidenceLabel = "MED"
	ConfidenceHigh ConfidenceLabel = "HIGH"
)

// RadarAxes is the fixed axis order of the radar vector
var RadarAxes = [5]string{"growth", "profitability", "safety", "technical", "valuation"}

// RadarVector is the 5-axis 0-100 summary used for visualization
type RadarVector [5]float64

// JSON serializes the vector as a JSON array (CSV "Radar Vector" column)
func (v RadarVector) JSON() string {
	data, _ := json.Marshal(v[:])
	return string(data)
}

// ParseRadarVector parses a JSON array of exactly five finite numbers
func ParseRadarVector(s string) (RadarVector, error) {
	var v RadarVector
	var raw []float64
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &raw); err != nil {
		return v, fmt.Errorf("radar vector: %w", err)
	}
	if len(raw) != len(v) {
		return v, fmt.Errorf("radar vector: expected %d values, got %d", len(v), len(raw))
	}
	for i, x := range raw {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return v, fmt.Errorf("radar vector: non-finite value at %d", i)
		}
		v[i] = x
	}
	return v, nil
}

// SignalAgreement classifies trend vs relative-strength direction
type SignalAgreement string

const (
	SignalAgree    SignalAgreement = "agree"
	SignalWeak     SignalAgreement = "weak"
	SignalDisagree SignalAgreement = "disagree"
)

// ConfidenceBreakdown lists each penalty applied
type ConfidenceBreakdown struct {
	MissingFactors []string        `json:"missing_factors,omitempty"`
	MissingPenalty float64         `json:"missing_penalty"`
	Signal         SignalAgreement `json:"signal"`
	SignalPenalty  float64         `json:"signal_penalty"`
	SectorAligned  bool            `json:"sector_aligned"`
	RegimePenalty  float64         `json:"regime_penalty"`
	TotalPenalty   float64         `json:"total_penalty"`
}

// ScoreResult is the composed score of one asset
// ⭐ SSOT: S3/S4 결과 (한번 계산되면 변경하지 않음)
type ScoreResult struct {
	Score            float64            `json:"score"`             // 0-200
	OpportunityScore float64            `json:"opportunity_score"` // 0-100
	RiskScore        float64            `json:"risk_score"`        // 0-100, higher = riskier
	Blend            float64            `json:"blend"`             // 0-100
	Bonuses          map[string]float64 `json:"bonuses,omitempty"`
	Regime           Regime             `json:"regime"`
	Radar            RadarVector        `json:"radar"`

	ConfidenceScore float64             `json:"confidence_score"` // 0-100
	ConfidenceLabel ConfidenceLabel     `json:"confidence_label"`
	Confidence      ConfidenceBreakdown `json:"confidence"`
}

// BonusTotal sums awarded bonus points
func (r ScoreResult) BonusTotal() float64 {
	total := 0.0
	for _, p := range r.Bonuses {
		total += p
	}
	return total
}

// ScoredAsset bundles record, normalized factors and result
type ScoredAsset struct {
	Record     AssetRecord       `json:"record"`
	Normalized NormalizedFactors `json:"normalized"`
	Result     ScoreResult       `json:"result"`
}
