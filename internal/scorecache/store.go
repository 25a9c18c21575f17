package scorecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/pkg/logger"
	"github.com/wonny/scanner/pkg/redis"
)

// LatestRun is the cached view of the most recent run
type LatestRun struct {
	Summary  contracts.RunSummary           `json:"summary"`
	Quality  *contracts.DataQualitySnapshot `json:"quality,omitempty"`
	Assets   []contracts.ScoredAsset        `json:"assets"`
	Rejected []contracts.RejectedRow        `json:"rejected,omitempty"`
}

// Store keeps the latest run and calibration for the API.
// Redis is shared across processes; the in-process copy covers a disabled Redis.
// ⭐ SSOT: API 조회용 최신 결과 캐시
type Store struct {
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger

	mu          sync.RWMutex
	latest      *LatestRun
	calibration *contracts.CalibrationReport
}

// New creates a new store
func New(client *redis.Client, ttl time.Duration, log *logger.Logger) *Store {
	return &Store{
		cache:  redis.NewCache(client, "scanner"),
		ttl:    ttl,
		logger: log.WithField("component", "scorecache"),
	}
}

// Name implements brain.Sink
func (s *Store) Name() string { return "scorecache" }

// Publish stores the run (brain.Sink)
func (s *Store) Publish(ctx context.Context, result *brain.RunResult) error {
	latest := &LatestRun{
		Summary: result.Summary,
		Quality: result.Quality,
		Assets:  result.Assets,
	}
	if result.Load != nil {
		latest.Rejected = result.Load.Rejected
	}

	s.mu.Lock()
	s.latest = latest
	s.mu.Unlock()

	if err := s.cache.Set(ctx, redis.LatestRunKey, latest, s.ttl); err != nil {
		return fmt.Errorf("cache latest run: %w", err)
	}
	if err := s.cache.Set(ctx, redis.RunKey(result.Summary.RunDate.Format(contracts.DateLayout)), latest, s.ttl); err != nil {
		return fmt.Errorf("cache run: %w", err)
	}
	for _, a := range result.Assets {
		if err := s.cache.Set(ctx, redis.AssetKey(a.Record.Identifier), a, s.ttl); err != nil {
			return fmt.Errorf("cache asset %s: %w", a.Record.Identifier, err)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id": result.Summary.RunID,
		"assets": len(result.Assets),
	}).Debug("Latest run cached")
	return nil
}

// Latest returns the most recent run (false when none)
func (s *Store) Latest(ctx context.Context) (*LatestRun, bool, error) {
	var latest LatestRun
	found, err := s.cache.Get(ctx, redis.LatestRunKey, &latest)
	if err != nil {
		return nil, false, err
	}
	if found {
		return &latest, true, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil, nil
}

// Asset returns one scored asset of the latest run
func (s *Store) Asset(ctx context.Context, identifier string) (*contracts.ScoredAsset, bool, error) {
	var asset contracts.ScoredAsset
	found, err := s.cache.Get(ctx, redis.AssetKey(identifier), &asset)
	if err != nil {
		return nil, false, err
	}
	if found {
		return &asset, true, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, false, nil
	}
	for i := range s.latest.Assets {
		if s.latest.Assets[i].Record.Identifier == identifier {
			a := s.latest.Assets[i]
			return &a, true, nil
		}
	}
	return nil, false, nil
}

// SaveCalibration stores the latest calibration report
func (s *Store) SaveCalibration(ctx context.Context, report *contracts.CalibrationReport) error {
	s.mu.Lock()
	s.calibration = report
	s.mu.Unlock()

	return s.cache.Set(ctx, redis.LatestCalibrationKey, report, s.ttl*7)
}

// Calibration returns the latest calibration report
func (s *Store) Calibration(ctx context.Context) (*contracts.CalibrationReport, bool, error) {
	var report contracts.CalibrationReport
	found, err := s.cache.Get(ctx, redis.LatestCalibrationKey, &report)
	if err != nil {
		return nil, false, err
	}
	if found {
		return &report, true, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibration, s.calibration != nil, nil
}
