package commands

import (
	"context"
	"fmt"

	"github.com/wonny/scanner/internal/alerts"
	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/calibration"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/metrics"
	"github.com/wonny/scanner/internal/s5_snapshot"
	"github.com/wonny/scanner/internal/scorecache"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/config"
	"github.com/wonny/scanner/pkg/logger"
	"github.com/wonny/scanner/pkg/redis"
)

// app holds the wired pipeline shared by all commands
type app struct {
	cfg     *config.Config
	scoring *scoringconfig.Config
	log     *logger.Logger

	store   contracts.SnapshotStore
	redis   *redis.Client
	cache   *scorecache.Store
	metrics *metrics.Recorder

	orchestrator *brain.Orchestrator
	service      *brain.Service

	closers []func()
}

// appOptions selects which sinks receive run results
type appOptions struct {
	// publish: cache + metrics + telegram (false for read-only reports)
	publish bool
}

// newApp wires config → store → sinks → orchestrator → service
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}

	// 3. Scoring config
	a.scoring, err = scoringconfig.LoadOrDefault(cfg.Paths.ScoringConfig)
	if err != nil {
		return nil, fmt.Errorf("load scoring config: %w", err)
	}
	for _, w := range scoringconfig.Warn(a.scoring) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	// 4. Snapshot store (csv | postgres)
	store, closeStore, err := s5_snapshot.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	// 5. Redis (disabled → no-op client)
	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = a.redis.Close() })

	a.cache = scorecache.New(a.redis, cfg.Redis.TTL, log)
	a.metrics = metrics.NewRecorder()

	// 6. Sinks
	var sinks []brain.Sink
	if opts.publish {
		sinks = append(sinks, a.cache, a.metrics, alerts.NewTelegramNotifier(cfg.Telegram, log))
	}

	// 7. Orchestrator + service
	a.orchestrator, err = brain.NewOrchestrator(a.scoring, store, log, sinks...)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	calibrator := calibration.NewCalibrator(store, a.scoring.Calibration, log)
	defaults := brain.RunConfig{
		InputPath:  cfg.Paths.InputCSV,
		OutputPath: cfg.Paths.OutputCSV,
	}
	a.service = brain.NewService(a.orchestrator, store, calibrator, defaults, a.scoring.Calibration.HorizonDays, log)

	if opts.publish {
		a.service.OnCalibration(func(ctx context.Context, report *contracts.CalibrationReport) {
			if err := a.cache.SaveCalibration(ctx, report); err != nil {
				log.WithError(err).Warn("Failed to cache calibration")
			}
			a.metrics.ObserveCalibration(report)
		})
		a.service.OnFailure(a.metrics.RecordFailure)
	}

	log.WithFields(map[string]interface{}{
		"env":         cfg.Env,
		"backend":     cfg.Snapshot.Backend,
		"config_hash": a.orchestrator.ConfigHash()[:12],
		"redis":       a.redis.Enabled(),
	}).Debug("App initialized")

	return a, nil
}

// close releases connections in reverse order
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
