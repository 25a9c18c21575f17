package calibration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/s5_snapshot"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func snap(id string, d int, close, score float64) contracts.SnapshotRow {
	return contracts.SnapshotRow{
		Identifier:       id,
		Date:             day(d),
		RunID:            "run",
		ConfigHash:       "hash",
		AssetClass:       contracts.AssetStock,
		Regime:           contracts.RegimeNeutral,
		Close:            close,
		Score:            score,
		OpportunityScore: score / 2,
		RiskScore:        100 - score/2,
		ConfidenceScore:  70,
		ConfidenceLabel:  contracts.ConfidenceMed,
		RadarVector:      "[50,50,50,50,50]",
	}
}

// 5 assets on the 2nd (scored 10..50) and the 3rd; returns rise with score
func history() []contracts.SnapshotRow {
	ids := []string{"A", "B", "C", "D", "E"}
	futures := []float64{98, 99, 101, 102, 103}

	rows := make([]contracts.SnapshotRow, 0, 10)
	for i, id := range ids {
		rows = append(rows, snap(id, 2, 100, float64(10*(i+1))))
	}
	for i, id := range ids {
		rows = append(rows, snap(id, 3, futures[i], float64(10*(i+1))))
	}
	return rows
}

func TestAnalyze(t *testing.T) {
	report := Analyze(history(), Options{AsOf: day(3), LookbackDays: 30, HorizonDays: 1, TopFraction: 0.3})

	assert.Equal(t, 10, report.WindowRows)
	assert.Equal(t, 5, report.SampleSize)
	assert.Equal(t, 5, report.Excluded.NoForwardReturn, "last date has no future close")
	assert.InDelta(t, 0.6, report.HitRate, 1e-12)

	score, ok := report.Correlation(contracts.ComponentScore)
	require.True(t, ok)
	assert.Greater(t, score, 0.9)

	risk, ok := report.Correlation(contracts.ComponentRisk)
	require.True(t, ok)
	assert.Less(t, risk, -0.9)

	// 상수 컬럼 → 분산 0 → 생략
	_, ok = report.Correlation(contracts.ComponentConfidence)
	assert.False(t, ok)
	_, ok = report.Correlation(contracts.RadarComponent("growth"))
	assert.False(t, ok)

	require.Len(t, report.Quintiles, 5)
	assert.Equal(t, 10.0, report.Quintiles[0].MinScore)
	assert.InDelta(t, -0.02, report.Quintiles[0].MeanReturn, 1e-12)
	assert.InDelta(t, 0.03, report.Quintiles[4].MeanReturn, 1e-12)

	assert.Equal(t, []string{
		"Opportunity factors show strong predictive power",
		"Risk factors effectively predict negative returns",
	}, report.Recommendations)

	require.NotNil(t, report.TopThreshold)
	assert.Equal(t, day(3), report.TopThreshold.Date)
	assert.Equal(t, 40.0, report.TopThreshold.Threshold)
	assert.Equal(t, 2, report.TopThreshold.Candidates)
}

func TestAnalyze_NoMatchesInWindow(t *testing.T) {
	// 60일 창 밖의 데이터만 존재 → 빈 보고서, 에러 없음
	report := Analyze(history(), Options{AsOf: day(2).AddDate(0, 0, 90), LookbackDays: 60, HorizonDays: 20, TopFraction: 0.1})

	assert.Zero(t, report.WindowRows)
	assert.Zero(t, report.SampleSize)
	assert.Empty(t, report.Correlations)
	assert.Empty(t, report.Recommendations)
	assert.NotNil(t, report.Recommendations)
	assert.Nil(t, report.Quintiles)
	assert.Nil(t, report.TopThreshold)
}

func TestAnalyze_NoFutureCloses(t *testing.T) {
	// 창 안의 행은 있지만 horizon 이후 가격이 없음
	report := Analyze(history(), Options{AsOf: day(3), LookbackDays: 60, HorizonDays: 20, TopFraction: 0.1})

	assert.Equal(t, 10, report.WindowRows)
	assert.Zero(t, report.SampleSize)
	assert.Equal(t, 10, report.Excluded.NoForwardReturn)
	assert.Empty(t, report.Correlations)
	assert.NotNil(t, report.TopThreshold)
}

func TestAnalyze_MalformedRadar(t *testing.T) {
	rows := history()
	rows[0].RadarVector = "[1,2]"
	rows[1].RadarVector = "not json"

	report := Analyze(rows, Options{AsOf: day(3), LookbackDays: 30, HorizonDays: 1, TopFraction: 0.1})

	assert.Equal(t, 2, report.Excluded.MalformedRadar)
	assert.Equal(t, 3, report.SampleSize)
	assert.Nil(t, report.Quintiles, "fewer than 5 samples")
}

func TestAnalyze_UsesStoredForwardReturn(t *testing.T) {
	rows := history()
	stored := -0.5
	rows[4].ForwardReturn = &stored // E: 0.03 → -0.5
	rows[4].ForwardHorizon = 1

	report := Analyze(rows, Options{AsOf: day(3), LookbackDays: 30, HorizonDays: 1, TopFraction: 0.1})
	require.Len(t, report.Quintiles, 5)
	assert.Equal(t, -0.5, report.Quintiles[4].MeanReturn)
}

func TestAnalyze_StoredReturnOfOtherHorizon(t *testing.T) {
	// 1일 horizon 으로 backfill 된 값 (2일치 이력)
	prefilled := func(horizon int) []contracts.SnapshotRow {
		rows := history()
		for i := 0; i < 5; i++ {
			v := rows[i+5].Close/rows[i].Close - 1
			rows[i].ForwardReturn = &v
			rows[i].ForwardHorizon = horizon
		}
		return rows
	}

	tests := []struct {
		name    string
		stored  int
		horizon int
		samples int
	}{
		{"same horizon reused", 1, 1, 5},
		{"longer horizon has no future close", 1, 5, 0},
		{"unknown horizon joined on the fly", 0, 1, 5},
		{"unknown horizon not reused", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Analyze(prefilled(tt.stored), Options{AsOf: day(3), LookbackDays: 30, HorizonDays: tt.horizon, TopFraction: 0.1})

			assert.Equal(t, tt.horizon, report.HorizonDays)
			assert.Equal(t, tt.samples, report.SampleSize)
			assert.Equal(t, 10-tt.samples, report.Excluded.NoForwardReturn)
			if tt.samples == 0 {
				assert.Empty(t, report.Correlations)
			}
		})
	}
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name   string
		report contracts.CalibrationReport
		want   []string
	}{
		{
			name:   "nothing computed",
			report: contracts.CalibrationReport{Correlations: map[string]float64{}},
			want:   []string{},
		},
		{
			name: "weak score, poor hit rate",
			report: contracts.CalibrationReport{
				SampleSize:   10,
				HitRate:      0.4,
				Correlations: map[string]float64{contracts.ComponentScore: 0.05, contracts.ComponentOpportunity: 0.05},
			},
			want: []string{
				"Score shows low correlation with returns: consider factor reweighting",
				"Opportunity factors need improvement",
				"Low hit rate (40.0%): review entry conditions",
			},
		},
		{
			name: "negative score, risk positively correlated",
			report: contracts.CalibrationReport{
				SampleSize:   10,
				HitRate:      0.7,
				Correlations: map[string]float64{contracts.ComponentScore: -0.4, contracts.ComponentRisk: 0.3},
			},
			want: []string{
				"Score negatively correlated with returns: check factor directions",
				"Risk factors may be mis-specified",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recommendations(&tt.report)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalibrator_Resolve(t *testing.T) {
	c := NewCalibrator(nil, scoringconfig.Default().Calibration, logger.NewNop())
	c.now = func() time.Time { return time.Date(2026, 3, 10, 15, 4, 0, 0, time.UTC) }

	opts, err := c.Resolve(Options{})
	require.NoError(t, err)
	assert.Equal(t, day(10), opts.AsOf)
	assert.Equal(t, 60, opts.LookbackDays)
	assert.Equal(t, 20, opts.HorizonDays)
	assert.Equal(t, 0.10, opts.TopFraction)

	_, err = c.Resolve(Options{TopFraction: 0.9})
	assert.Error(t, err)
	_, err = c.Resolve(Options{HorizonDays: -1})
	assert.Error(t, err)
}

func TestCalibrator_Run(t *testing.T) {
	ctx := context.Background()
	store := s5_snapshot.NewCSVStore(filepath.Join(t.TempDir(), "snapshots.csv"), logger.NewNop())
	_, err := store.Append(ctx, history())
	require.NoError(t, err)

	c := NewCalibrator(store, scoringconfig.Default().Calibration, logger.NewNop())
	report, err := c.Run(ctx, Options{AsOf: day(2), LookbackDays: 30, HorizonDays: 1, TopFraction: 0.3})
	require.NoError(t, err)

	// 3일 행은 창 밖이지만 미래 가격으로 사용됨
	assert.Equal(t, 5, report.WindowRows)
	assert.Equal(t, 5, report.SampleSize)
	assert.False(t, report.GeneratedAt.IsZero())

	// 스토어는 변경되지 않음 (권고만)
	rows, err := store.Load(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	for _, r := range rows {
		assert.Nil(t, r.ForwardReturn)
	}
}
