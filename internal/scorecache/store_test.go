package scorecache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/pkg/config"
	"github.com/wonny/scanner/pkg/logger"
	"github.com/wonny/scanner/pkg/redis"
)

func runResult() *brain.RunResult {
	return &brain.RunResult{
		Summary: contracts.RunSummary{
			RunID:   "run-1",
			RunDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Scored:  2,
		},
		Assets: []contracts.ScoredAsset{
			{Record: contracts.AssetRecord{Identifier: "A"}, Result: contracts.ScoreResult{Score: 150}},
			{Record: contracts.AssetRecord{Identifier: "B"}, Result: contracts.ScoreResult{Score: 90}},
		},
	}
}

func disabledStore(t *testing.T) *Store {
	t.Helper()
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)
	return New(client, time.Hour, logger.NewNop())
}

func TestStore_InProcessFallback(t *testing.T) {
	ctx := context.Background()
	s := disabledStore(t)

	_, found, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Publish(ctx, runResult()))

	latest, found, err := s.Latest(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "run-1", latest.Summary.RunID)
	assert.Len(t, latest.Assets, 2)

	asset, found, err := s.Asset(ctx, "B")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 90.0, asset.Result.Score)

	_, found, err = s.Asset(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SaveCalibration(ctx, &contracts.CalibrationReport{SampleSize: 7}))
	report, found, err := s.Calibration(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 7, report.SampleSize)
}

func TestStore_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := redis.New(ctx, &config.Config{Redis: config.RedisConfig{Addr: addr, Enabled: true}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	writer := New(client, time.Minute, logger.NewNop())
	require.NoError(t, writer.Publish(ctx, runResult()))

	// 다른 프로세스 (새 Store) 에서도 조회 가능
	reader := New(client, time.Minute, logger.NewNop())
	asset, found, err := reader.Asset(ctx, "A")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 150.0, asset.Result.Score)
}
