package calibration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/s5_snapshot"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

// =============================================================================
// Calibrator
// =============================================================================

// minCorrelationSample is the smallest sample a correlation is reported for
const minCorrelationSample = 3

// Options of one calibration run (zero values fall back to the scoring config)
type Options struct {
	AsOf         time.Time
	LookbackDays int
	HorizonDays  int
	TopFraction  float64
}

// Calibrator 점수 vs 실현 수익률 검증기 (S6, offline)
// ⭐ SSOT: 가중치를 바꾸지 않음 (권고만)
type Calibrator struct {
	store    contracts.SnapshotStore
	defaults scoringconfig.Calibration
	logger   *logger.Logger
	now      func() time.Time
}

// NewCalibrator creates a new calibrator
func NewCalibrator(store contracts.SnapshotStore, defaults scoringconfig.Calibration, log *logger.Logger) *Calibrator {
	return &Calibrator{
		store:    store,
		defaults: defaults,
		logger:   log.WithStage(contracts.StageCalibration.ShortName()),
		now:      time.Now,
	}
}

// Resolve fills zero options from the defaults and checks ranges
func (c *Calibrator) Resolve(opts Options) (Options, error) {
	if opts.AsOf.IsZero() {
		opts.AsOf = c.now()
	}
	opts.AsOf = contracts.TruncateDay(opts.AsOf)
	if opts.LookbackDays == 0 {
		opts.LookbackDays = c.defaults.LookbackDays
	}
	if opts.HorizonDays == 0 {
		opts.HorizonDays = c.defaults.HorizonDays
	}
	if opts.TopFraction == 0 {
		opts.TopFraction = c.defaults.TopFraction
	}

	if opts.LookbackDays <= 0 {
		return opts, fmt.Errorf("lookback must be > 0 days, got %d", opts.LookbackDays)
	}
	if opts.HorizonDays <= 0 {
		return opts, fmt.Errorf("horizon must be > 0 trading days, got %d", opts.HorizonDays)
	}
	if opts.TopFraction < 0.01 || opts.TopFraction > 0.50 {
		return opts, fmt.Errorf("top fraction must be in [0.01, 0.50], got %.4f", opts.TopFraction)
	}
	return opts, nil
}

// Run loads the window (plus later rows for the forward-return join) and analyzes it
func (c *Calibrator) Run(ctx context.Context, opts Options) (*contracts.CalibrationReport, error) {
	opts, err := c.Resolve(opts)
	if err != nil {
		return nil, err
	}

	from := opts.AsOf.AddDate(0, 0, -opts.LookbackDays)
	rows, err := c.store.Load(ctx, from, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	report := Analyze(rows, opts)
	report.GeneratedAt = c.now()

	c.logger.WithFields(map[string]interface{}{
		"as_of":       opts.AsOf.Format(contracts.DateLayout),
		"window_rows": report.WindowRows,
		"sample_size": report.SampleSize,
		"excluded":    report.Excluded.NoForwardReturn + report.Excluded.MalformedRadar,
	}).Info("Calibration complete")

	return report, nil
}

// =============================================================================
// Analysis
// =============================================================================

type sample struct {
	score, opp, risk, conf float64
	radar                  contracts.RadarVector
	ret                    float64
}

// Analyze is the pure calibration of rows against forward returns.
// rows may include dates after AsOf; they only supply future closes.
func Analyze(rows []contracts.SnapshotRow, opts Options) *contracts.CalibrationReport {
	asOf := contracts.TruncateDay(opts.AsOf)
	from := asOf.AddDate(0, 0, -opts.LookbackDays)

	report := &contracts.CalibrationReport{
		AsOf:            asOf,
		From:            from,
		LookbackDays:    opts.LookbackDays,
		HorizonDays:     opts.HorizonDays,
		Correlations:    make(map[string]float64),
		Recommendations: []string{},
	}

	joined := s5_snapshot.WithForwardReturns(rows, opts.HorizonDays)

	window := make([]contracts.SnapshotRow, 0, len(joined))
	samples := make([]sample, 0, len(joined))
	for _, r := range joined {
		if r.Date.Before(from) || r.Date.After(asOf) {
			continue
		}
		window = append(window, r)

		// 미래 가격 없음 → 제외 (0으로 채우지 않음)
		if r.ForwardReturn == nil {
			report.Excluded.NoForwardReturn++
			continue
		}
		radar, err := contracts.ParseRadarVector(r.RadarVector)
		if err != nil {
			report.Excluded.MalformedRadar++
			continue
		}
		samples = append(samples, sample{
			score: r.Score,
			opp:   r.OpportunityScore,
			risk:  r.RiskScore,
			conf:  r.ConfidenceScore,
			radar: radar,
			ret:   *r.ForwardReturn,
		})
	}
	report.WindowRows = len(window)
	report.SampleSize = len(samples)
	report.TopThreshold = topThreshold(window, opts.TopFraction)

	if len(samples) == 0 {
		return report
	}

	returns := make([]float64, len(samples))
	hits := 0
	for i, s := range samples {
		returns[i] = s.ret
		if s.ret > 0 {
			hits++
		}
	}
	report.HitRate = float64(hits) / float64(len(samples))

	// 1. 상관계수
	components := map[string]func(sample) float64{
		contracts.ComponentScore:       func(s sample) float64 { return s.score },
		contracts.ComponentOpportunity: func(s sample) float64 { return s.opp },
		contracts.ComponentRisk:        func(s sample) float64 { return s.risk },
		contracts.ComponentConfidence:  func(s sample) float64 { return s.conf },
	}
	for i, axis := range contracts.RadarAxes {
		i := i
		components[contracts.RadarComponent(axis)] = func(s sample) float64 { return s.radar[i] }
	}
	for name, get := range components {
		xs := make([]float64, len(samples))
		for i, s := range samples {
			xs[i] = get(s)
		}
		if corr, ok := pearson(xs, returns); ok {
			report.Correlations[name] = corr
		}
	}

	// 2. 점수 5분위 성과
	report.Quintiles = quintiles(samples)

	// 3. 권고
	report.Recommendations = recommendations(report)

	return report
}

// pearson returns the correlation or false for small or constant samples
func pearson(x, y []float64) (float64, bool) {
	if len(x) < minCorrelationSample {
		return 0, false
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0, false
	}
	return stat.Correlation(x, y, nil), true
}

// quintiles groups samples by score rank into five buckets (needs >= 5 samples)
func quintiles(samples []sample) []contracts.QuintileStat {
	n := len(samples)
	if n < 5 {
		return nil
	}

	sorted := make([]sample, n)
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score < sorted[j].score })

	out := make([]contracts.QuintileStat, 0, 5)
	for q := 0; q < 5; q++ {
		lo, hi := q*n/5, (q+1)*n/5
		bucket := sorted[lo:hi]

		rets := make([]float64, len(bucket))
		for i, s := range bucket {
			rets[i] = s.ret
		}
		out = append(out, contracts.QuintileStat{
			Quintile:   q + 1,
			Count:      len(bucket),
			MinScore:   bucket[0].score,
			MaxScore:   bucket[len(bucket)-1].score,
			MeanReturn: stat.Mean(rets, nil),
		})
	}
	return out
}

// topThreshold: (1 − topFrac) quantile of positive scores on the latest date
func topThreshold(window []contracts.SnapshotRow, topFrac float64) *contracts.TopThreshold {
	var latest time.Time
	for _, r := range window {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	if latest.IsZero() {
		return nil
	}

	scores := make([]float64, 0)
	for _, r := range window {
		if r.Date.Equal(latest) && r.Score > 0 {
			scores = append(scores, r.Score)
		}
	}
	if len(scores) == 0 {
		return nil
	}
	sort.Float64s(scores)

	threshold := stat.Quantile(1-topFrac, stat.Empirical, scores, nil)
	candidates := 0
	for _, s := range scores {
		if s >= threshold {
			candidates++
		}
	}
	return &contracts.TopThreshold{
		Date:        latest,
		TopFraction: topFrac,
		Threshold:   threshold,
		Candidates:  candidates,
	}
}
