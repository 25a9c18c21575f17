package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/contracts"
)

// Recorder holds all Prometheus metrics of the scanner
// ⭐ SSOT: 메트릭 이름은 여기서만 정의
type Recorder struct {
	registry *prometheus.Registry

	Runs          *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Assets        *prometheus.GaugeVec
	Confidence    *prometheus.GaugeVec
	SnapshotRows  *prometheus.CounterVec
	LastRun       prometheus.Gauge
	TopScore      prometheus.Gauge

	CalibrationSample      prometheus.Gauge
	CalibrationHitRate     prometheus.Gauge
	CalibrationCorrelation *prometheus.GaugeVec
}

// NewRecorder creates a recorder on its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_runs_total",
				Help: "Pipeline runs by status",
			},
			[]string{"status"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scanner_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"stage"},
		),

		Assets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scanner_assets",
				Help: "Assets of the latest run by outcome (loaded, rejected, scored)",
			},
			[]string{"outcome"},
		),

		Confidence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scanner_confidence_assets",
				Help: "Assets of the latest run by confidence label",
			},
			[]string{"label"},
		),

		SnapshotRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_snapshot_rows_total",
				Help: "Snapshot rows by append result",
			},
			[]string{"result"},
		),

		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_last_run_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),

		TopScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_top_score",
			Help: "Highest score of the latest run",
		}),

		CalibrationSample: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_calibration_sample_size",
			Help: "Rows used by the latest calibration",
		}),

		CalibrationHitRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_calibration_hit_rate",
			Help: "Share of positive forward returns in the latest calibration",
		}),

		CalibrationCorrelation: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scanner_calibration_correlation",
				Help: "Pearson correlation of forward returns by score component",
			},
			[]string{"component"},
		),
	}

	r.registry.MustRegister(
		r.Runs,
		r.StageDuration,
		r.Assets,
		r.Confidence,
		r.SnapshotRows,
		r.LastRun,
		r.TopScore,
		r.CalibrationSample,
		r.CalibrationHitRate,
		r.CalibrationCorrelation,
	)
	return r
}

// Name implements brain.Sink
func (r *Recorder) Name() string { return "metrics" }

// Publish records a successful run (brain.Sink)
func (r *Recorder) Publish(_ context.Context, result *brain.RunResult) error {
	s := result.Summary

	r.Runs.WithLabelValues("success").Inc()
	for stage, d := range s.StageDurations {
		r.StageDuration.WithLabelValues(stage.ShortName()).Observe(d.Seconds())
	}

	r.Assets.WithLabelValues("loaded").Set(float64(s.Loaded))
	r.Assets.WithLabelValues("rejected").Set(float64(s.Rejected))
	r.Assets.WithLabelValues("scored").Set(float64(s.Scored))

	for _, label := range []contracts.ConfidenceLabel{contracts.ConfidenceHigh, contracts.ConfidenceMed, contracts.ConfidenceLow} {
		r.Confidence.WithLabelValues(string(label)).Set(float64(s.Labels[label]))
	}

	r.SnapshotRows.WithLabelValues("appended").Add(float64(s.SnapshotAppended))
	r.SnapshotRows.WithLabelValues("skipped").Add(float64(s.SnapshotSkipped))

	top := 0.0
	for _, a := range result.Assets {
		if a.Result.Score > top {
			top = a.Result.Score
		}
	}
	r.TopScore.Set(top)
	r.LastRun.Set(float64(s.FinishedAt.Unix()))
	return nil
}

// RecordFailure counts a failed run
func (r *Recorder) RecordFailure() {
	r.Runs.WithLabelValues("failure").Inc()
}

// ObserveCalibration exports the latest calibration report
func (r *Recorder) ObserveCalibration(report *contracts.CalibrationReport) {
	r.CalibrationSample.Set(float64(report.SampleSize))
	r.CalibrationHitRate.Set(report.HitRate)

	r.CalibrationCorrelation.Reset()
	for component, corr := range report.Correlations {
		r.CalibrationCorrelation.WithLabelValues(component).Set(corr)
	}
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
