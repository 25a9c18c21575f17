package s2_factors

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

// ErrUnknownRule is returned for a factor name without a configured rule
var ErrUnknownRule = errors.New("unknown factor rule")

// Normalizer maps raw factor values onto 0-100 (S2)
// ⭐ SSOT: raw → 0-100 변환은 여기서만
type Normalizer struct {
	rules   []scoringconfig.FactorRule
	byName  map[string]scoringconfig.FactorRule
	neutral float64
	logger  *logger.Logger
}

// NewNormalizer creates a normalizer from the scoring config
func NewNormalizer(cfg *scoringconfig.Config, log *logger.Logger) *Normalizer {
	byName := make(map[string]scoringconfig.FactorRule, len(cfg.Factors))
	for _, r := range cfg.Factors {
		byName[r.Name] = r
	}
	return &Normalizer{
		rules:   cfg.Factors,
		byName:  byName,
		neutral: cfg.Normalization.Neutral,
		logger:  log.WithStage(contracts.StageFactors.ShortName()),
	}
}

// Value normalizes one raw value by rule name
func (n *Normalizer) Value(name string, raw float64) (float64, error) {
	rule, ok := n.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownRule, name)
	}
	v, _ := Normalize(raw, true, rule, n.neutral)
	return v, nil
}

// NormalizeRecord normalizes every configured factor of a record.
// Missing raw values get the neutral value and are flagged.
func (n *Normalizer) NormalizeRecord(rec contracts.AssetRecord) contracts.NormalizedFactors {
	out := contracts.NormalizedFactors{
		Values:  make(map[string]float64, len(n.rules)),
		Missing: make(map[string]bool),
	}
	for _, rule := range n.rules {
		raw, present := rec.Factors[rule.Name]
		v, missing := Normalize(raw, present, rule, n.neutral)
		out.Values[rule.Name] = v
		if missing {
			out.Missing[rule.Name] = true
		}
	}
	return out
}

// NormalizeAll normalizes records in order
func (n *Normalizer) NormalizeAll(records []contracts.AssetRecord) []contracts.NormalizedFactors {
	out := make([]contracts.NormalizedFactors, len(records))
	missing := 0
	for i := range records {
		out[i] = n.NormalizeRecord(records[i])
		missing += len(out[i].Missing)
	}

	n.logger.WithFields(map[string]interface{}{
		"records":        len(records),
		"factors":        len(n.rules),
		"missing_values": missing,
	}).Info("Normalization complete")

	return out
}

// Normalize maps raw onto [0,100] with a rule.
// Returns (neutral, true) for missing or non-finite input.
func Normalize(raw float64, present bool, rule scoringconfig.FactorRule, neutral float64) (float64, bool) {
	if !present || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return neutral, true
	}

	var x float64
	switch rule.Transform {
	case scoringconfig.TransformLog:
		if raw <= rule.Min {
			x = 0
		} else {
			lo, hi := math.Log1p(rule.Min), math.Log1p(rule.Max)
			x = (math.Log1p(raw) - lo) / (hi - lo) * 100
		}
	default:
		x = (raw - rule.Min) / (rule.Max - rule.Min) * 100
	}

	x = clamp(x, 0, 100)
	if rule.Direction == scoringconfig.DirectionInverted {
		x = 100 - x
	}
	return x, false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
