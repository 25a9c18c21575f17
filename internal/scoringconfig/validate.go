package scoringconfig

import (
	"errors"
	"fmt"
	"math"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Input ===
	if len(cfg.Input.IdentifierColumns) == 0 {
		return ValidationError{"input.identifier_columns", "must not be empty"}
	}

	// === Factors ===
	if len(cfg.Factors) == 0 {
		return ValidationError{"factors", "must not be empty"}
	}
	known := make(map[string]bool, len(cfg.Factors))
	for i, r := range cfg.Factors {
		field := fmt.Sprintf("factors[%d]", i)
		if r.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if known[r.Name] {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate factor %q", r.Name)}
		}
		known[r.Name] = true

		if r.Column == "" && !DerivedFactors[r.Name] {
			return ValidationError{field + ".column", fmt.Sprintf("required for non-derived factor %q", r.Name)}
		}
		if !(r.Min < r.Max) {
			return ValidationError{field, "min must be < max"}
		}
		if r.Direction != DirectionNormal && r.Direction != DirectionInverted {
			return ValidationError{field + ".direction", "must be normal or inverted"}
		}
		switch r.Transform {
		case TransformLinear:
		case TransformLog:
			if r.Min < 0 {
				return ValidationError{field + ".min", "log transform requires min >= 0"}
			}
		default:
			return ValidationError{field + ".transform", "must be linear or log"}
		}
		if r.Require != RequireAny && r.Require != RequirePositive && r.Require != RequireNonNegative {
			return ValidationError{field + ".require", "must be empty, positive or non_negative"}
		}
	}

	// === Normalization ===
	if cfg.Normalization.Neutral < 0 || cfg.Normalization.Neutral > 100 {
		return ValidationError{"normalization.neutral", "must be in [0, 100]"}
	}

	// === Winsorize ===
	w := cfg.Winsorize
	if err := validateQuantiles(w.Lower, w.Upper); err != nil {
		return ValidationError{"winsorize", err.Error()}
	}
	if w.MinSample < 2 {
		return ValidationError{"winsorize.min_sample", "must be >= 2"}
	}
	if err := validateFactorRefs(w.Factors, known); err != nil {
		return ValidationError{"winsorize.factors", err.Error()}
	}
	for name, o := range w.Overrides {
		if !known[name] {
			return ValidationError{"winsorize.overrides." + name, "unknown factor"}
		}
		if err := validateQuantiles(o.Lower, o.Upper); err != nil {
			return ValidationError{"winsorize.overrides." + name, err.Error()}
		}
	}

	// === Weights ===
	if err := validateWeightTable(cfg.Weights.Opportunity, known); err != nil {
		return ValidationError{"weights.opportunity", err.Error()}
	}
	if err := validateWeightTable(cfg.Weights.Risk, known); err != nil {
		return ValidationError{"weights.risk", err.Error()}
	}

	// === Regimes ===
	for name, p := range map[string]RegimeParams{
		"bull":    cfg.Regimes.Bull,
		"neutral": cfg.Regimes.Neutral,
		"bear":    cfg.Regimes.Bear,
	} {
		if err := validatePctRange(p.OppWeight, "regimes."+name+".opp_w"); err != nil {
			return err
		}
		if err := validatePctRange(p.RiskWeight, "regimes."+name+".risk_w"); err != nil {
			return err
		}
		if p.RiskMultiplier < 0 {
			return ValidationError{"regimes." + name + ".risk_mult", "must be >= 0"}
		}
	}
	if cfg.Regimes.TrendThresholds.BearBelow > cfg.Regimes.TrendThresholds.BullFrom {
		return ValidationError{"regimes.trend_thresholds", "bear_below must be <= bull_from"}
	}

	// === Bonuses ===
	for i, b := range cfg.Bonuses {
		field := fmt.Sprintf("bonuses[%d]", i)
		if b.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if b.Points <= 0 {
			return ValidationError{field + ".points", "must be > 0"}
		}
		if len(b.Conditions) == 0 {
			return ValidationError{field + ".conditions", "must not be empty"}
		}
		for _, c := range b.Conditions {
			if !known[c.Factor] {
				return ValidationError{field + ".conditions", fmt.Sprintf("unknown factor %q", c.Factor)}
			}
			if c.Min < 0 || c.Min > 100 {
				return ValidationError{field + ".conditions", "min must be in [0, 100]"}
			}
		}
	}

	if cfg.ScoreScale <= 0 {
		return ValidationError{"score_scale", "must be > 0"}
	}

	// === Confidence ===
	if err := validateConfidence(cfg.Confidence, known); err != nil {
		return err
	}

	// === Radar ===
	for i, factors := range cfg.Radar.Axes() {
		if err := validateFactorRefs(factors, known); err != nil {
			return ValidationError{"radar." + radarAxisNames[i], err.Error()}
		}
	}

	// === Calibration ===
	if cfg.Calibration.LookbackDays <= 0 {
		return ValidationError{"calibration.lookback_days", "must be > 0"}
	}
	if cfg.Calibration.HorizonDays <= 0 {
		return ValidationError{"calibration.horizon_days", "must be > 0"}
	}
	if cfg.Calibration.TopFraction < 0.01 || cfg.Calibration.TopFraction > 0.50 {
		return ValidationError{"calibration.top_fraction", "must be in [0.01, 0.50]"}
	}

	return nil
}

var radarAxisNames = [5]string{"growth", "profitability", "safety", "technical", "valuation"}

func validateConfidence(c Confidence, known map[string]bool) error {
	if err := validateFactorRefs(c.ExpectedFactors, known); err != nil {
		return ValidationError{"confidence.expected_factors", err.Error()}
	}
	if !known[c.TrendFactor] {
		return ValidationError{"confidence.trend_factor", fmt.Sprintf("unknown factor %q", c.TrendFactor)}
	}
	if !known[c.StrengthFactor] {
		return ValidationError{"confidence.strength_factor", fmt.Sprintf("unknown factor %q", c.StrengthFactor)}
	}
	for field, v := range map[string]float64{
		"missing_penalty":      c.MissingPenalty,
		"disagreement_penalty": c.DisagreementPenalty,
		"weak_signal_penalty":  c.WeakSignalPenalty,
		"regime_penalty":       c.RegimePenalty,
	} {
		if v < 0 || v > 100 {
			return ValidationError{"confidence." + field, "must be in [0, 100]"}
		}
	}
	if c.SignalBand < 0 || c.SignalBand >= 50 {
		return ValidationError{"confidence.signal_band", "must be in [0, 50)"}
	}
	if !(0 < c.MedThreshold && c.MedThreshold <= c.HighThreshold && c.HighThreshold <= 100) {
		return ValidationError{"confidence", "thresholds must satisfy 0 < med <= high <= 100"}
	}

	// 단조성: 팩터 하나가 빠지면 (disagree → weak 전환 포함) 신뢰도는 올라가면 안 됨.
	// trend/strength 가 expected_factors 밖이면 결측 패널티가 붙지 않음
	if c.signalFactorsExpected() {
		if c.DisagreementPenalty > c.MissingPenalty+c.WeakSignalPenalty {
			return ValidationError{"confidence.disagreement_penalty", "must be <= missing_penalty + weak_signal_penalty"}
		}
	} else if c.DisagreementPenalty > c.WeakSignalPenalty {
		return ValidationError{"confidence.disagreement_penalty",
			"must be <= weak_signal_penalty while trend_factor or strength_factor is not an expected factor"}
	}
	return nil
}

// signalFactorsExpected reports whether both signal factors carry a missing penalty
func (c Confidence) signalFactorsExpected() bool {
	trend, strength := false, false
	for _, name := range c.ExpectedFactors {
		trend = trend || name == c.TrendFactor
		strength = strength || name == c.StrengthFactor
	}
	return trend && strength
}

// Warn returns non-fatal recommendations
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	for table, weights := range map[string]map[string]float64{
		"opportunity": cfg.Weights.Opportunity,
		"risk":        cfg.Weights.Risk,
	} {
		for name, w := range weights {
			if w > 30 {
				warnings = append(warnings, Warning{
					Code:    "CONCENTRATED_WEIGHT",
					Message: fmt.Sprintf("%s.%s = %.1f%%: 단일 팩터 비중 > 30%%", table, name, w),
				})
			}
		}
	}

	if cfg.Winsorize.Lower > 0.10 || cfg.Winsorize.Upper < 0.90 {
		warnings = append(warnings, Warning{
			Code:    "AGGRESSIVE_WINSORIZE",
			Message: "winsorize 분위수가 10%/90%보다 안쪽: 정상 분포도 잘릴 수 있음",
		})
	}

	if len(cfg.Confidence.ExpectedFactors) < 5 {
		warnings = append(warnings, Warning{
			Code:    "FEW_EXPECTED_FACTORS",
			Message: "expected_factors < 5: 결측 패널티가 신뢰도를 거의 구분하지 못함",
		})
	}

	if cfg.Regimes.Bear.OppWeight > cfg.Regimes.Bull.OppWeight {
		warnings = append(warnings, Warning{
			Code:    "INVERTED_REGIME",
			Message: "bear.opp_w > bull.opp_w: 약세장에서 기회 비중이 더 큼",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateQuantiles(lower, upper float64) error {
	if lower < 0 || upper > 1 || !(lower < upper) {
		return errors.New("quantiles must satisfy 0 <= lower < upper <= 1")
	}
	return nil
}

func validateFactorRefs(names []string, known map[string]bool) error {
	if len(names) == 0 {
		return errors.New("must not be empty")
	}
	for _, n := range names {
		if !known[n] {
			return fmt.Errorf("unknown factor %q", n)
		}
	}
	return nil
}

func validateWeightTable(weights map[string]float64, known map[string]bool) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	sum := 0.0
	for name, w := range weights {
		if !known[name] {
			return fmt.Errorf("unknown factor %q", name)
		}
		if w <= 0 {
			return fmt.Errorf("weight of %q must be > 0", name)
		}
		sum += w
	}
	if math.Abs(sum-100) > 1e-6 {
		return fmt.Errorf("must sum to 100, got %.4f", sum)
	}
	return nil
}

// validatePctRange는 비율 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
