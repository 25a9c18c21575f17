package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/calibration"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scheduler"
	"github.com/wonny/scanner/pkg/logger"
)

// Runner is the pipeline surface the jobs drive (brain.Service)
type Runner interface {
	RunPipeline(ctx context.Context) (*brain.RunResult, error)
	Backfill(ctx context.Context) (int, error)
	Calibrate(ctx context.Context, opts calibration.Options) (*contracts.CalibrationReport, error)
}

// skipBusy maps an overlapping run to scheduler.ErrSkip
func skipBusy(err error) error {
	if errors.Is(err, brain.ErrBusy) {
		return fmt.Errorf("%w: %v", scheduler.ErrSkip, err)
	}
	return err
}

// =============================================================================
// Daily run
// =============================================================================

// PipelineJob runs S0→S5 for the configured watchlist
// ⭐ SSOT: 일일 스코어링 스케줄은 이 Job에서만
type PipelineJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewPipelineJob creates a new pipeline job
func NewPipelineJob(runner Runner, schedule string, log *logger.Logger) *PipelineJob {
	return &PipelineJob{runner: runner, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *PipelineJob) Name() string { return "pipeline_run" }

// Schedule returns the cron schedule
func (j *PipelineJob) Schedule() string { return j.schedule }

// Run executes the pipeline
func (j *PipelineJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled pipeline run")

	if _, err := j.runner.RunPipeline(ctx); err != nil {
		return skipBusy(err)
	}
	return nil
}

// =============================================================================
// Forward-return backfill
// =============================================================================

// BackfillJob fills forward returns after the daily run
type BackfillJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewBackfillJob creates a new backfill job
func NewBackfillJob(runner Runner, schedule string, log *logger.Logger) *BackfillJob {
	return &BackfillJob{runner: runner, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *BackfillJob) Name() string { return "forward_return_backfill" }

// Schedule returns the cron schedule
func (j *BackfillJob) Schedule() string { return j.schedule }

// Run executes the backfill
func (j *BackfillJob) Run(ctx context.Context) error {
	if _, err := j.runner.Backfill(ctx); err != nil {
		return skipBusy(err)
	}
	return nil
}

// =============================================================================
// Calibration
// =============================================================================

// CalibrationJob runs S6 with the config defaults (weekly)
type CalibrationJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewCalibrationJob creates a new calibration job
func NewCalibrationJob(runner Runner, schedule string, log *logger.Logger) *CalibrationJob {
	return &CalibrationJob{runner: runner, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *CalibrationJob) Name() string { return "calibration" }

// Schedule returns the cron schedule
func (j *CalibrationJob) Schedule() string { return j.schedule }

// Run executes the calibration
func (j *CalibrationJob) Run(ctx context.Context) error {
	report, err := j.runner.Calibrate(ctx, calibration.Options{})
	if err != nil {
		return err
	}

	for _, rec := range report.Recommendations {
		j.logger.WithField("recommendation", rec).Info("Calibration recommendation")
	}
	return nil
}

// Register adds the three scanner jobs
func Register(s *scheduler.Scheduler, runner Runner, runCron, backfillCron, calibrateCron string, log *logger.Logger) error {
	for _, job := range []scheduler.Job{
		NewPipelineJob(runner, runCron, log),
		NewBackfillJob(runner, backfillCron, log),
		NewCalibrationJob(runner, calibrateCron, log),
	} {
		if err := s.AddJob(job); err != nil {
			return err
		}
	}
	return nil
}

var _ Runner = (*brain.Service)(nil)
