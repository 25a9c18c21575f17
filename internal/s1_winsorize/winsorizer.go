package s1_winsorize

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

// Bounds are the clip limits of one factor
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Clip bounds v to [Lower, Upper]
func (b Bounds) Clip(v float64) float64 {
	if v < b.Lower {
		return b.Lower
	}
	if v > b.Upper {
		return b.Upper
	}
	return v
}

// ColumnReport describes what happened to one factor column
type ColumnReport struct {
	Factor      string  `json:"factor"`
	LowerQ      float64 `json:"lower_q"`
	UpperQ      float64 `json:"upper_q"`
	Bounds      Bounds  `json:"bounds"`
	Sample      int     `json:"sample"`
	ClippedLow  int     `json:"clipped_low"`
	ClippedHigh int     `json:"clipped_high"`
	Skipped     bool    `json:"skipped"`
}

// Report is the S1 result summary (column order = config order)
type Report struct {
	Columns []ColumnReport `json:"columns"`
}

// TotalClipped sums clipped values over all columns
func (r *Report) TotalClipped() int {
	total := 0
	for _, c := range r.Columns {
		total += c.ClippedLow + c.ClippedHigh
	}
	return total
}

// Column returns the report of one factor
func (r *Report) Column(factor string) (ColumnReport, bool) {
	for _, c := range r.Columns {
		if c.Factor == factor {
			return c, true
		}
	}
	return ColumnReport{}, false
}

// Winsorizer clips outliers to cross-sectional quantiles (S1)
// ⭐ SSOT: 이상치 처리는 여기서만
type Winsorizer struct {
	cfg    scoringconfig.Winsorize
	logger *logger.Logger
}

// NewWinsorizer creates a new winsorizer
func NewWinsorizer(cfg scoringconfig.Winsorize, log *logger.Logger) *Winsorizer {
	return &Winsorizer{
		cfg:    cfg,
		logger: log.WithStage(contracts.StageWinsorize.ShortName()),
	}
}

// Apply computes bounds from records and clips a copy of them.
// The input slice is not modified.
func (w *Winsorizer) Apply(records []contracts.AssetRecord) ([]contracts.AssetRecord, *Report) {
	report := &Report{Columns: make([]ColumnReport, 0, len(w.cfg.Factors))}
	bounds := make(map[string]Bounds, len(w.cfg.Factors))

	for _, factor := range w.cfg.Factors {
		lowerQ, upperQ := w.cfg.Bounds(factor)
		col := ColumnReport{Factor: factor, LowerQ: lowerQ, UpperQ: upperQ}

		values := columnValues(records, factor)
		col.Sample = len(values)
		if col.Sample < w.cfg.MinSample {
			col.Skipped = true
			w.logger.WithFields(map[string]interface{}{
				"factor":     factor,
				"sample":     col.Sample,
				"min_sample": w.cfg.MinSample,
			}).Debug("Sample too small, column not winsorized")
			report.Columns = append(report.Columns, col)
			continue
		}

		col.Bounds = quantileBounds(values, lowerQ, upperQ)
		bounds[factor] = col.Bounds
		report.Columns = append(report.Columns, col)
	}

	out, clipped := ClipRecords(records, bounds)
	for i := range report.Columns {
		c := clipped[report.Columns[i].Factor]
		report.Columns[i].ClippedLow = c[0]
		report.Columns[i].ClippedHigh = c[1]
	}

	w.logger.WithFields(map[string]interface{}{
		"records": len(records),
		"columns": len(bounds),
		"clipped": report.TotalClipped(),
	}).Info("Winsorize complete")

	return out, report
}

// ClipRecords clips copies of records to fixed bounds.
// Returns per-factor [low, high] clip counts. Missing values stay missing.
func ClipRecords(records []contracts.AssetRecord, bounds map[string]Bounds) ([]contracts.AssetRecord, map[string][2]int) {
	out := make([]contracts.AssetRecord, len(records))
	clipped := make(map[string][2]int, len(bounds))

	for i := range records {
		rec := records[i].Clone()
		for factor, b := range bounds {
			v, ok := rec.Factors[factor]
			if !ok {
				continue
			}
			c := clipped[factor]
			switch {
			case v < b.Lower:
				c[0]++
			case v > b.Upper:
				c[1]++
			default:
				continue
			}
			clipped[factor] = c
			rec.Factors[factor] = b.Clip(v)
		}
		out[i] = rec
	}
	return out, clipped
}

// quantileBounds returns empirical quantiles of values (sorted in place)
func quantileBounds(values []float64, lowerQ, upperQ float64) Bounds {
	sort.Float64s(values)
	return Bounds{
		Lower: stat.Quantile(lowerQ, stat.Empirical, values, nil),
		Upper: stat.Quantile(upperQ, stat.Empirical, values, nil),
	}
}

func columnValues(records []contracts.AssetRecord, factor string) []float64 {
	values := make([]float64, 0, len(records))
	for i := range records {
		if v, ok := records[i].Factors[factor]; ok {
			values = append(values, v)
		}
	}
	return values
}
