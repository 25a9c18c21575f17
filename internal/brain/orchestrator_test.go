package brain

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/s0_data"
	"github.com/wonny/scanner/internal/s5_snapshot"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

const watchlist = `ISIN,Ticker,Name,Sektor,Akt. Kurs,ROE %,Debt/Equity,CRV,Elliott-Signal,MarketRegimeStock
US0378331005,AAPL,Apple,Technology,200,22,0.5,2,BUY,bull
,MSFT,Microsoft,Technology,400,35,0.8,3,SELL,neutral
,,NoId,Technology,1,1,1,1,,
,BTC-USD,Bitcoin,Crypto,50000,-,n/a,,HOLD,
`

type recordingSink struct {
	calls int
	err   error
	last  *RunResult
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, r *RunResult) error {
	s.calls++
	s.last = r
	return s.err
}

func setup(t *testing.T, input string, sinks ...Sink) (*Orchestrator, *s5_snapshot.CSVStore, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "watchlist.csv")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	store := s5_snapshot.NewCSVStore(filepath.Join(dir, "history.csv"), logger.NewNop())
	o, err := NewOrchestrator(scoringconfig.Default(), store, logger.NewNop(), sinks...)
	require.NoError(t, err)
	return o, store, path
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()
	failing := &recordingSink{err: errors.New("boom")}
	ok := &recordingSink{}
	o, store, input := setup(t, watchlist, failing, ok)

	output := filepath.Join(filepath.Dir(input), "out", "scored.csv")
	date := time.Date(2026, 3, 2, 22, 30, 0, 0, time.UTC)

	res, err := o.Run(ctx, RunConfig{Date: date, InputPath: input, OutputPath: output})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Summary.RunID)
	assert.Equal(t, o.ConfigHash(), res.Summary.ConfigHash)
	assert.Equal(t, 3, res.Summary.Loaded)
	assert.Equal(t, 1, res.Summary.Rejected)
	assert.Equal(t, 3, res.Summary.Scored)
	assert.Equal(t, 3, res.Summary.SnapshotAppended)
	assert.Equal(t, []string{"S0:Data", "S1:Winsorize", "S2:Factors", "S3:Scoring", "S4:Confidence", "S5:Snapshot"}, res.CompletedStages)
	require.NotNil(t, res.Quality)
	require.NotNil(t, res.Winsorize)

	total := 0
	for _, n := range res.Summary.Labels {
		total += n
	}
	assert.Equal(t, 3, total)

	for _, a := range res.Assets {
		assert.GreaterOrEqual(t, a.Result.Score, 0.0)
		assert.LessOrEqual(t, a.Result.Score, 200.0)
	}

	// 싱크 실패는 실행을 실패시키지 않음
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
	assert.Same(t, res, ok.last)

	// 출력 CSV: 입력 4행 + 헤더
	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "missing identifier", records[3][len(records[3])-1])

	rows, err := store.Load(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, res.Summary.RunID, rows[0].RunID)
	assert.Equal(t, o.ConfigHash(), rows[0].ConfigHash)

	// 같은 날 재실행 → 스냅샷 skip
	res, err = o.Run(ctx, RunConfig{Date: date, InputPath: input})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.SnapshotSkipped)
}

func TestOrchestrator_DryRun(t *testing.T) {
	ctx := context.Background()
	o, store, input := setup(t, watchlist)

	res, err := o.Run(ctx, RunConfig{InputPath: input, DryRun: true, RunID: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.Summary.RunID)
	assert.NotContains(t, res.CompletedStages, "S5:Snapshot")

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Rows)
}

func TestOrchestrator_NoRecords(t *testing.T) {
	sink := &recordingSink{}
	o, _, input := setup(t, "ISIN,Ticker,ROE %\n,,1\n", sink)
	output := filepath.Join(filepath.Dir(input), "scored.csv")

	res, err := o.Run(context.Background(), RunConfig{InputPath: input, OutputPath: output})
	require.Error(t, err)
	assert.ErrorIs(t, err, s0_data.ErrNoRecords)
	assert.Equal(t, 1, res.Summary.Rejected)
	assert.Zero(t, sink.calls)

	// 거부 사유가 담긴 출력은 남음
	_, err = os.Stat(output)
	assert.NoError(t, err)
}

func TestOrchestrator_MissingInput(t *testing.T) {
	o, _, input := setup(t, watchlist)

	res, err := o.Run(context.Background(), RunConfig{InputPath: input + ".missing"})
	require.Error(t, err)
	assert.Empty(t, res.CompletedStages)
	assert.Equal(t, err, res.Error)
}

func TestOrchestrator_Canceled(t *testing.T) {
	o, _, input := setup(t, watchlist)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, RunConfig{InputPath: input})
	assert.ErrorIs(t, err, context.Canceled)
}

var _ contracts.SnapshotStore = (*s5_snapshot.CSVStore)(nil)
