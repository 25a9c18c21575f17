package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/scanner/internal/calibration"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/pkg/logger"
)

// ErrBusy is returned when another run/backfill holds the pipeline lock
var ErrBusy = errors.New("pipeline already running")

// CalibrationObserver receives every finished calibration (cache, metrics)
type CalibrationObserver func(ctx context.Context, report *contracts.CalibrationReport)

// Service serializes pipeline work for the scheduler, API and CLI
// ⭐ SSOT: 동시 실행 방지 (TryLock) 는 여기서만
type Service struct {
	orchestrator *Orchestrator
	store        contracts.SnapshotStore
	calibrator   *calibration.Calibrator
	defaults     RunConfig
	horizon      int

	observers []CalibrationObserver
	onFailure func()

	mu     sync.Mutex
	logger *logger.Logger
}

// NewService creates a new service; defaults supplies input/output paths of scheduled runs
func NewService(o *Orchestrator, store contracts.SnapshotStore, cal *calibration.Calibrator, defaults RunConfig, horizon int, log *logger.Logger) *Service {
	return &Service{
		orchestrator: o,
		store:        store,
		calibrator:   cal,
		defaults:     defaults,
		horizon:      horizon,
		onFailure:    func() {},
		logger:       log.WithField("component", "service"),
	}
}

// OnCalibration registers a calibration observer
func (s *Service) OnCalibration(fn CalibrationObserver) {
	s.observers = append(s.observers, fn)
}

// OnFailure registers the failed-run hook (metrics)
func (s *Service) OnFailure(fn func()) {
	s.onFailure = fn
}

// RunPipeline runs one daily pipeline; an overlapping call gets ErrBusy
func (s *Service) RunPipeline(ctx context.Context) (*RunResult, error) {
	return s.Run(ctx, RunConfig{})
}

// Run runs the pipeline with rc overriding the defaults
func (s *Service) Run(ctx context.Context, rc RunConfig) (*RunResult, error) {
	if !s.mu.TryLock() {
		s.logger.Warn("Pipeline run skipped: another run in progress")
		return nil, ErrBusy
	}
	defer s.mu.Unlock()

	if rc.InputPath == "" {
		rc.InputPath = s.defaults.InputPath
	}
	if rc.OutputPath == "" {
		rc.OutputPath = s.defaults.OutputPath
	}

	result, err := s.orchestrator.Run(ctx, rc)
	if err != nil {
		s.onFailure()
		return result, err
	}
	return result, nil
}

// Horizon returns the forward-return horizon backfill uses (calibration.horizon_days)
func (s *Service) Horizon() int {
	return s.horizon
}

// Backfill fills forward returns with the configured horizon
func (s *Service) Backfill(ctx context.Context) (int, error) {
	if !s.mu.TryLock() {
		s.logger.Warn("Backfill skipped: another run in progress")
		return 0, ErrBusy
	}
	defer s.mu.Unlock()

	start := time.Now()
	n, err := s.store.BackfillForwardReturns(ctx, s.horizon)
	if err != nil {
		return 0, fmt.Errorf("backfill: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"filled":   n,
		"horizon":  s.horizon,
		"duration": time.Since(start).String(),
	}).Info("Forward returns backfilled")
	return n, nil
}

// Calibrate runs S6 and notifies observers. Read-only on the store, so no lock.
func (s *Service) Calibrate(ctx context.Context, opts calibration.Options) (*contracts.CalibrationReport, error) {
	report, err := s.calibrator.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, fn := range s.observers {
		fn(ctx, report)
	}
	return report, nil
}

// Store returns the snapshot store
func (s *Service) Store() contracts.SnapshotStore {
	return s.store
}
