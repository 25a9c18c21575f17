package brain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/internal/calibration"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

func newService(t *testing.T) *Service {
	t.Helper()
	o, store, input := setup(t, watchlist)
	cal := calibration.NewCalibrator(store, scoringconfig.Default().Calibration, logger.NewNop())
	return NewService(o, store, cal, RunConfig{InputPath: input}, 1, logger.NewNop())
}

func TestService_Busy(t *testing.T) {
	s := newService(t)

	s.mu.Lock()
	_, err := s.RunPipeline(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Backfill(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	s.mu.Unlock()

	res, err := s.RunPipeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.Scored)
}

func TestService_FailureHook(t *testing.T) {
	s := newService(t)
	failures := 0
	s.OnFailure(func() { failures++ })

	_, err := s.Run(context.Background(), RunConfig{InputPath: "/nonexistent/watchlist.csv"})
	require.Error(t, err)
	assert.Equal(t, 1, failures)
}

func TestService_BackfillAndCalibrate(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	day1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := s.Run(ctx, RunConfig{Date: day1})
	require.NoError(t, err)
	_, err = s.Run(ctx, RunConfig{Date: day1.AddDate(0, 0, 1)})
	require.NoError(t, err)

	n, err := s.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "every asset of day 1 has a day 2 close")

	var observed *contracts.CalibrationReport
	s.OnCalibration(func(_ context.Context, r *contracts.CalibrationReport) { observed = r })

	report, err := s.Calibrate(ctx, calibration.Options{AsOf: day1.AddDate(0, 0, 1), LookbackDays: 30, HorizonDays: 1, TopFraction: 0.1})
	require.NoError(t, err)
	assert.Same(t, report, observed)
	assert.Equal(t, 3, report.SampleSize)
	assert.Equal(t, 3, report.Excluded.NoForwardReturn)

	// backfill 은 1일 기준 → 5일 calibration 에 재사용되지 않음
	assert.Equal(t, 1, s.Horizon())
	report, err = s.Calibrate(ctx, calibration.Options{AsOf: day1.AddDate(0, 0, 1), LookbackDays: 30, HorizonDays: 5, TopFraction: 0.1})
	require.NoError(t, err)
	assert.Zero(t, report.SampleSize)
	assert.Equal(t, 6, report.Excluded.NoForwardReturn)
	assert.Empty(t, report.Correlations)
}
