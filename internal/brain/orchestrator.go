package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/export"
	"github.com/wonny/scanner/internal/s0_data"
	"github.com/wonny/scanner/internal/s0_data/quality"
	"github.com/wonny/scanner/internal/s1_winsorize"
	"github.com/wonny/scanner/internal/s2_factors"
	"github.com/wonny/scanner/internal/s3_scoring"
	"github.com/wonny/scanner/internal/s4_confidence"
	"github.com/wonny/scanner/internal/s5_snapshot"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

// Sink receives a finished run (cache, alerts, metrics).
// Sink failures are logged; they never fail the run.
type Sink interface {
	Name() string
	Publish(ctx context.Context, result *RunResult) error
}

// Orchestrator coordinates the daily pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
// S0 → S1 → S2 → S3 → S4 → S5 → export → sinks
type Orchestrator struct {
	cfg        *scoringconfig.Config
	configHash string

	// Stage components
	qualityGate *quality.QualityGate
	winsorizer  *s1_winsorize.Winsorizer
	normalizer  *s2_factors.Normalizer
	scorer      *s3_scoring.Scorer
	estimator   *s4_confidence.Estimator
	snapshots   *s5_snapshot.Writer
	exporter    *export.ScoredCSVWriter

	sinks []Sink

	logger *logger.Logger
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	Date       time.Time // run date (snapshot key); zero = now
	RunID      string    // zero = new uuid
	InputPath  string
	OutputPath string // empty = no scored CSV
	DryRun     bool   // skip snapshot append
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	Summary         contracts.RunSummary
	CompletedStages []string
	Load            *s0_data.LoadResult
	Quality         *contracts.DataQualitySnapshot
	Winsorize       *s1_winsorize.Report
	Assets          []contracts.ScoredAsset
	Error           error
}

// NewOrchestrator wires all stages from one scoring config
func NewOrchestrator(cfg *scoringconfig.Config, store contracts.SnapshotStore, log *logger.Logger, sinks ...Sink) (*Orchestrator, error) {
	hash, err := scoringconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash scoring config: %w", err)
	}

	return &Orchestrator{
		cfg:         cfg,
		configHash:  hash,
		qualityGate: quality.NewQualityGate(quality.DefaultConfig()),
		winsorizer:  s1_winsorize.NewWinsorizer(cfg.Winsorize, log),
		normalizer:  s2_factors.NewNormalizer(cfg, log),
		scorer:      s3_scoring.NewScorer(cfg, log),
		estimator:   s4_confidence.NewEstimator(cfg, log),
		snapshots:   s5_snapshot.NewWriter(store, log),
		exporter:    export.NewScoredCSVWriter(log),
		sinks:       sinks,
		logger:      log,
	}, nil
}

// ConfigHash returns the hash recorded in every snapshot row
func (o *Orchestrator) ConfigHash() string {
	return o.configHash
}

// Run executes S0→S5, writes the scored CSV and notifies sinks
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig) (*RunResult, error) {
	if rc.Date.IsZero() {
		rc.Date = time.Now()
	}
	if rc.RunID == "" {
		rc.RunID = uuid.NewString()
	}

	result := &RunResult{
		Summary: contracts.RunSummary{
			RunID:          rc.RunID,
			RunDate:        contracts.TruncateDay(rc.Date),
			ConfigHash:     o.configHash,
			StartedAt:      time.Now(),
			StageDurations: make(map[contracts.Stage]time.Duration),
			Labels:         make(map[contracts.ConfidenceLabel]int),
		},
		CompletedStages: make([]string, 0),
	}
	log := o.logger.WithRun(rc.RunID)

	log.WithFields(map[string]interface{}{
		"date":        result.Summary.RunDate.Format(contracts.DateLayout),
		"input":       rc.InputPath,
		"config_hash": o.configHash[:12],
		"dry_run":     rc.DryRun,
	}).Info("Starting pipeline run")

	err := o.run(ctx, rc, result, log)
	result.Summary.FinishedAt = time.Now()
	if err != nil {
		result.Error = err
		log.WithError(err).WithField("completed", result.CompletedStages).Error("Pipeline run failed")
		return result, err
	}

	o.publish(ctx, result, log)

	log.WithFields(map[string]interface{}{
		"loaded":   result.Summary.Loaded,
		"rejected": result.Summary.Rejected,
		"scored":   result.Summary.Scored,
		"appended": result.Summary.SnapshotAppended,
		"skipped":  result.Summary.SnapshotSkipped,
		"duration": result.Summary.Duration().String(),
	}).Info("Pipeline run completed")

	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, rc RunConfig, result *RunResult, log *logger.Logger) error {
	// S0: Load
	loaded, err := o.stage(result, contracts.StageData, func() (*s0_data.LoadResult, error) {
		return s0_data.NewLoader(o.cfg, log).WithAsOf(rc.Date).Load(ctx, rc.InputPath)
	})
	if loaded != nil {
		result.Load = loaded
		result.Summary.Loaded = len(loaded.Records)
		result.Summary.Rejected = len(loaded.Rejected)
	}
	if errors.Is(err, s0_data.ErrNoRecords) {
		// 전부 거부된 경우에도 사유가 담긴 출력 CSV는 남김
		if exportErr := o.export(rc, result); exportErr != nil {
			log.WithError(exportErr).Warn("Scored CSV not written")
		}
		return fmt.Errorf("S0 failed: %w", err)
	}
	if err != nil {
		return fmt.Errorf("S0 failed: %w", err)
	}
	result.CompletedStages = append(result.CompletedStages, "S0:Data")

	// S0 coverage gate (report only)
	result.Quality = o.qualityGate.Check(rc.Date, loaded.Records, len(loaded.Rejected), o.cfg)
	if !result.Quality.IsValid() {
		log.WithFields(map[string]interface{}{
			"quality_score": result.Quality.QualityScore,
			"low_coverage":  result.Quality.LowCoverage,
		}).Warn("Input coverage below threshold")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// S1: Winsorize
	start := time.Now()
	bounded, report := o.winsorizer.Apply(loaded.Records)
	result.Winsorize = report
	o.done(result, contracts.StageWinsorize, "S1:Winsorize", start)

	// S2: Normalize
	start = time.Now()
	normalized := o.normalizer.NormalizeAll(bounded)
	o.done(result, contracts.StageFactors, "S2:Factors", start)

	// S3: Score
	start = time.Now()
	assets := o.scorer.ScoreAll(bounded, normalized)
	o.done(result, contracts.StageScoring, "S3:Scoring", start)

	// S4: Confidence
	start = time.Now()
	o.estimator.Apply(assets)
	o.done(result, contracts.StageConfidence, "S4:Confidence", start)

	result.Assets = assets
	result.Summary.Scored = len(assets)
	for _, a := range assets {
		result.Summary.Labels[a.Result.ConfidenceLabel]++
	}

	// S5: Snapshot
	if rc.DryRun {
		log.Info("Skipping S5:Snapshot (dry run mode)")
	} else {
		start = time.Now()
		appended, err := o.snapshots.Write(ctx, assets, rc.RunID, o.configHash, rc.Date)
		if err != nil {
			return fmt.Errorf("S5 failed: %w", err)
		}
		result.Summary.SnapshotAppended = appended.Appended
		result.Summary.SnapshotSkipped = appended.Skipped
		o.done(result, contracts.StageSnapshot, "S5:Snapshot", start)
	}

	if err := o.export(rc, result); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return nil
}

// stage times S0 (the only stage that can fail on input)
func (o *Orchestrator) stage(result *RunResult, stage contracts.Stage, fn func() (*s0_data.LoadResult, error)) (*s0_data.LoadResult, error) {
	start := time.Now()
	out, err := fn()
	result.Summary.StageDurations[stage] = time.Since(start)
	return out, err
}

func (o *Orchestrator) done(result *RunResult, stage contracts.Stage, name string, start time.Time) {
	result.Summary.StageDurations[stage] = time.Since(start)
	result.CompletedStages = append(result.CompletedStages, name)
}

func (o *Orchestrator) export(rc RunConfig, result *RunResult) error {
	if rc.OutputPath == "" || result.Load == nil {
		return nil
	}
	table := export.Table{
		Header: result.Load.Header,
		Rows:   result.Load.Rows,
		Lines:  result.Load.Lines,
	}
	return o.exporter.Write(rc.OutputPath, table, result.Assets, result.Load.Rejected)
}

func (o *Orchestrator) publish(ctx context.Context, result *RunResult, log *logger.Logger) {
	for _, sink := range o.sinks {
		if err := sink.Publish(ctx, result); err != nil {
			log.WithError(err).WithField("sink", sink.Name()).Warn("Sink publish failed")
		}
	}
}
