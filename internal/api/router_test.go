package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/internal/api/handlers"
	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/calibration"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/portfolio"
	"github.com/wonny/scanner/internal/scheduler"
	"github.com/wonny/scanner/internal/scorecache"
	"github.com/wonny/scanner/pkg/config"
	"github.com/wonny/scanner/pkg/logger"
	"github.com/wonny/scanner/pkg/redis"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeRunner struct {
	err   error
	calls []string
}

func (f *fakeRunner) RunPipeline(context.Context) (*brain.RunResult, error) {
	f.calls = append(f.calls, "run")
	if f.err != nil {
		return nil, f.err
	}
	return &brain.RunResult{Summary: contracts.RunSummary{RunID: "run-9", Scored: 3}}, nil
}

func (f *fakeRunner) Backfill(context.Context) (int, error) {
	f.calls = append(f.calls, "backfill")
	return 4, f.err
}

func (f *fakeRunner) Calibrate(context.Context, calibration.Options) (*contracts.CalibrationReport, error) {
	f.calls = append(f.calls, "calibrate")
	if f.err != nil {
		return nil, f.err
	}
	return &contracts.CalibrationReport{SampleSize: 12, HitRate: 0.75}, nil
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(_ context.Context, cfg redis.RateLimitConfig) (bool, int, error) {
	f.keys = append(f.keys, cfg.Key)
	return f.allowed, 2, f.err
}

type fakeSnapshots struct {
	contracts.SnapshotStore
	err error
}

func (f *fakeSnapshots) Stats(context.Context) (contracts.StoreStats, error) {
	return contracts.StoreStats{Rows: 10, Identifiers: 5, Dates: 2}, f.err
}

type fakeJobs struct{}

func (fakeJobs) GetJobStats() map[string]scheduler.JobStats {
	return map[string]scheduler.JobStats{"pipeline_run": {JobName: "pipeline_run", TotalRuns: 1, SuccessCount: 1}}
}

// =============================================================================
// Helpers
// =============================================================================

type testEnv struct {
	router   http.Handler
	cache    *scorecache.Store
	runner   *fakeRunner
	limiter  *fakeLimiter
	snapshot *fakeSnapshots
}

func newEnv(t *testing.T, jobs handlers.JobStatsSource) *testEnv {
	t.Helper()
	log := logger.NewNop()

	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)

	env := &testEnv{
		cache:    scorecache.New(client, time.Hour, log),
		runner:   &fakeRunner{},
		limiter:  &fakeLimiter{allowed: true},
		snapshot: &fakeSnapshots{},
	}
	env.router = NewRouter(Handlers{
		Scores:    handlers.NewScoresHandler(env.cache, log),
		Pipeline:  handlers.NewPipelineHandler(env.runner, env.limiter, log),
		Status:    handlers.NewStatusHandler(env.snapshot, client, jobs, log),
		Portfolio: handlers.NewPortfolioHandler(env.cache, portfolio.DefaultConfig(), portfolio.DefaultConstraints(), log),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("scanner_runs_total 1\n"))
		}),
	}, log)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func asset(id string, score float64, label contracts.ConfidenceLabel) contracts.ScoredAsset {
	return contracts.ScoredAsset{
		Record: contracts.AssetRecord{Identifier: id, AssetClass: contracts.AssetStock},
		Result: contracts.ScoreResult{Score: score, Regime: contracts.RegimeBull, ConfidenceLabel: label},
	}
}

func publish(t *testing.T, env *testEnv) {
	t.Helper()
	require.NoError(t, env.cache.Publish(context.Background(), &brain.RunResult{
		Summary: contracts.RunSummary{RunID: "run-1", RunDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Scored: 4},
		Assets: []contracts.ScoredAsset{
			asset("AAA", 120, contracts.ConfidenceHigh),
			asset("BBB", 150, contracts.ConfidenceMed),
			asset("CCC", 90, contracts.ConfidenceHigh),
			asset("DDD", 150, contracts.ConfidenceLow),
		},
	}))
}

// =============================================================================
// Tests
// =============================================================================

func TestHealth(t *testing.T) {
	env := newEnv(t, fakeJobs{})

	rec := env.do(t, "GET", "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.HealthResponse
	decode(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "disabled", body.Redis)
	require.NotNil(t, body.Store)
	assert.Equal(t, 10, body.Store.Rows)
	assert.Contains(t, body.Jobs, "pipeline_run")

	env.snapshot.err = errors.New("disk gone")
	rec = env.do(t, "GET", "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, "degraded", body.Status)
}

func TestMetrics(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, "GET", "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scanner_runs_total")
}

func TestScores(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, "GET", "/api/scores")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	publish(t, env)

	tests := []struct {
		name string
		path string
		ids  []string
	}{
		{"all sorted", "/api/scores", []string{"BBB", "DDD", "AAA", "CCC"}},
		{"top", "/api/scores?top=2", []string{"BBB", "DDD"}},
		{"label", "/api/scores?label=high", []string{"AAA", "CCC"}},
		{"label and top", "/api/scores?label=HIGH&top=1", []string{"AAA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "GET", tt.path)
			require.Equal(t, http.StatusOK, rec.Code)

			var body handlers.ScoresResponse
			decode(t, rec, &body)
			assert.Equal(t, "run-1", body.Summary.RunID)
			assert.Equal(t, len(tt.ids), body.Count)

			ids := make([]string, 0, len(body.Assets))
			for _, a := range body.Assets {
				ids = append(ids, a.Record.Identifier)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}

	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/scores?top=-1").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/scores?label=ULTRA").Code)
}

func TestScoreByID(t *testing.T) {
	env := newEnv(t, nil)
	publish(t, env)

	rec := env.do(t, "GET", "/api/scores/CCC")
	require.Equal(t, http.StatusOK, rec.Code)
	var a contracts.ScoredAsset
	decode(t, rec, &a)
	assert.Equal(t, 90.0, a.Result.Score)

	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/scores/ZZZ").Code)
}

func TestCalibration(t *testing.T) {
	env := newEnv(t, nil)

	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/calibration").Code)

	require.NoError(t, env.cache.SaveCalibration(context.Background(), &contracts.CalibrationReport{SampleSize: 7}))
	rec := env.do(t, "GET", "/api/calibration")
	require.Equal(t, http.StatusOK, rec.Code)

	var report contracts.CalibrationReport
	decode(t, rec, &report)
	assert.Equal(t, 7, report.SampleSize)
}

func TestPortfolio(t *testing.T) {
	env := newEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/portfolio").Code)

	publish(t, env)

	rec := env.do(t, "GET", "/api/portfolio")
	require.Equal(t, http.StatusOK, rec.Code)
	var p contracts.Portfolio
	decode(t, rec, &p)
	assert.Equal(t, "run-1", p.RunID)
	assert.Equal(t, 4, p.Candidates)
	require.Len(t, p.Positions, 4)
	assert.Equal(t, "BBB", p.Positions[0].Identifier)
	assert.Equal(t, contracts.RegimeBull, p.EquityRegime)
	assert.InDelta(t, 0.6, p.TotalWeight(), 1e-9, "4 positions at the 15% cap")
	assert.InDelta(t, 0.4, p.Cash, 1e-9)

	rec = env.do(t, "GET", "/api/portfolio?top=2&min_score=100")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &p)
	assert.Equal(t, 3, p.Candidates)
	assert.Len(t, p.Positions, 2)
	assert.Equal(t, 2, p.Criteria.TopN)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/portfolio?top=x").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/portfolio?top=0").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/portfolio?crypto=maybe").Code)
}

func TestTrigger(t *testing.T) {
	t.Run("actions", func(t *testing.T) {
		env := newEnv(t, nil)

		rec := env.do(t, "POST", "/api/pipeline/run")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))
		var summary contracts.RunSummary
		decode(t, rec, &summary)
		assert.Equal(t, "run-9", summary.RunID)

		rec = env.do(t, "POST", "/api/pipeline/backfill")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"filled":4}`, rec.Body.String())

		rec = env.do(t, "POST", "/api/pipeline/calibrate")
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, []string{"run", "backfill", "calibrate"}, env.runner.calls)
		assert.Equal(t, []string{"trigger:run", "trigger:backfill", "trigger:calibrate"}, env.limiter.keys)
	})

	t.Run("unknown action", func(t *testing.T) {
		env := newEnv(t, nil)
		assert.Equal(t, http.StatusNotFound, env.do(t, "POST", "/api/pipeline/deploy").Code)
		assert.Empty(t, env.runner.calls)
	})

	t.Run("rate limited", func(t *testing.T) {
		env := newEnv(t, nil)
		env.limiter.allowed = false
		assert.Equal(t, http.StatusTooManyRequests, env.do(t, "POST", "/api/pipeline/run").Code)
		assert.Empty(t, env.runner.calls)
	})

	t.Run("limiter down admits", func(t *testing.T) {
		env := newEnv(t, nil)
		env.limiter.err = errors.New("redis down")
		assert.Equal(t, http.StatusOK, env.do(t, "POST", "/api/pipeline/run").Code)
	})

	t.Run("busy", func(t *testing.T) {
		env := newEnv(t, nil)
		env.runner.err = brain.ErrBusy
		assert.Equal(t, http.StatusConflict, env.do(t, "POST", "/api/pipeline/run").Code)
	})

	t.Run("failure", func(t *testing.T) {
		env := newEnv(t, nil)
		env.runner.err = errors.New("S0 failed")
		assert.Equal(t, http.StatusInternalServerError, env.do(t, "POST", "/api/pipeline/calibrate").Code)
	})
}

func TestSchedulerJobs(t *testing.T) {
	env := newEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/scheduler/jobs").Code)

	env = newEnv(t, fakeJobs{})
	rec := env.do(t, "GET", "/api/scheduler/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]scheduler.JobStats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats["pipeline_run"].SuccessCount)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestUnknownRoute(t *testing.T) {
	env := newEnv(t, nil)
	rec := env.do(t, "GET", "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/nope")
}
