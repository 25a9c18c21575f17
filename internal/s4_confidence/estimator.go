package s4_confidence

import (
	"math"
	"strings"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

// direction of a single technical signal
type direction int

const (
	dirWeak direction = iota
	dirUp
	dirDown
)

// Estimator computes the confidence score of a scored asset (S4)
// ⭐ SSOT: 신뢰도 계산은 여기서만
type Estimator struct {
	cfg     scoringconfig.Confidence
	regimes scoringconfig.Regimes
	logger  *logger.Logger
}

// NewEstimator creates a new estimator
func NewEstimator(cfg *scoringconfig.Config, log *logger.Logger) *Estimator {
	return &Estimator{
		cfg:     cfg.Confidence,
		regimes: cfg.Regimes,
		logger:  log.WithStage(contracts.StageConfidence.ShortName()),
	}
}

// Estimate returns score, label and the penalty breakdown
func (e *Estimator) Estimate(nf contracts.NormalizedFactors, sector string, regime contracts.Regime) (float64, contracts.ConfidenceLabel, contracts.ConfidenceBreakdown) {
	var b contracts.ConfidenceBreakdown

	// 1. 결측 패널티
	for _, name := range e.cfg.ExpectedFactors {
		if nf.IsMissing(name) {
			b.MissingFactors = append(b.MissingFactors, name)
		}
	}
	b.MissingPenalty = float64(len(b.MissingFactors)) * e.cfg.MissingPenalty

	// 2. 추세 / 상대강도 일치
	b.Signal = e.agreement(nf)
	switch b.Signal {
	case contracts.SignalDisagree:
		b.SignalPenalty = e.cfg.DisagreementPenalty
	case contracts.SignalWeak:
		b.SignalPenalty = e.cfg.WeakSignalPenalty
	}

	// 3. 섹터-국면 정합
	b.SectorAligned = sectorAligned(sector, e.regimes.Params(string(regime)).PreferredSectors)
	if !b.SectorAligned {
		b.RegimePenalty = e.cfg.RegimePenalty
	}

	b.TotalPenalty = b.MissingPenalty + b.SignalPenalty + b.RegimePenalty
	score := math.Max(0, math.Min(100, 100-b.TotalPenalty))

	return score, Label(score, e.cfg), b
}

// Apply fills the confidence fields of every asset in place
func (e *Estimator) Apply(assets []contracts.ScoredAsset) {
	labels := make(map[contracts.ConfidenceLabel]int)
	for i := range assets {
		a := &assets[i]
		score, label, breakdown := e.Estimate(a.Normalized, a.Record.Sector, a.Result.Regime)
		a.Result.ConfidenceScore = score
		a.Result.ConfidenceLabel = label
		a.Result.Confidence = breakdown
		labels[label]++

		e.logger.WithFields(map[string]interface{}{
			"identifier": a.Record.Identifier,
			"confidence": score,
			"missing":    len(breakdown.MissingFactors),
			"signal":     breakdown.Signal,
		}).Debug("Confidence estimated")
	}

	e.logger.WithFields(map[string]interface{}{
		"high": labels[contracts.ConfidenceHigh],
		"med":  labels[contracts.ConfidenceMed],
		"low":  labels[contracts.ConfidenceLow],
	}).Info("Confidence complete")
}

// Label buckets a score: HIGH >= high, MED >= med, else LOW
func Label(score float64, cfg scoringconfig.Confidence) contracts.ConfidenceLabel {
	switch {
	case score >= cfg.HighThreshold:
		return contracts.ConfidenceHigh
	case score >= cfg.MedThreshold:
		return contracts.ConfidenceMed
	default:
		return contracts.ConfidenceLow
	}
}

func (e *Estimator) agreement(nf contracts.NormalizedFactors) contracts.SignalAgreement {
	trend := e.classify(nf.Get(e.cfg.TrendFactor))
	rs := e.classify(nf.Get(e.cfg.StrengthFactor))

	switch {
	case trend == dirWeak || rs == dirWeak:
		return contracts.SignalWeak
	case trend != rs:
		return contracts.SignalDisagree
	default:
		return contracts.SignalAgree
	}
}

// classify: up >= 50+band, down <= 50-band; missing counts as weak
func (e *Estimator) classify(v float64, present bool) direction {
	switch {
	case !present:
		return dirWeak
	case v >= 50+e.cfg.SignalBand:
		return dirUp
	case v <= 50-e.cfg.SignalBand:
		return dirDown
	default:
		return dirWeak
	}
}

func sectorAligned(sector string, preferred []string) bool {
	if len(preferred) == 0 {
		return true
	}
	for _, p := range preferred {
		if strings.EqualFold(strings.TrimSpace(sector), strings.TrimSpace(p)) {
			return true
		}
	}
	return false
}
