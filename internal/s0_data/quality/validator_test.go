package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
)

func fullRecord(id string, cfg *scoringconfig.Config) contracts.AssetRecord {
	factors := make(map[string]float64)
	for _, name := range cfg.FactorNames() {
		factors[name] = 1
	}
	return contracts.AssetRecord{Identifier: id, Factors: factors}
}

func TestQualityGate_Check(t *testing.T) {
	cfg := scoringconfig.Default()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	records := []contracts.AssetRecord{
		fullRecord("A", cfg),
		fullRecord("B", cfg),
		fullRecord("C", cfg),
		{Identifier: "D", Factors: map[string]float64{"roe": 1}},
	}
	// crv: 1/4 커버리지
	delete(records[0].Factors, "crv")
	delete(records[1].Factors, "crv")
	delete(records[2].Factors, "crv")
	records[0].Factors["crv"] = 2

	gate := NewQualityGate(DefaultConfig())
	snapshot := gate.Check(date, records, 2, cfg)

	require.NotNil(t, snapshot)
	assert.Equal(t, date, snapshot.Date)
	assert.Equal(t, 4, snapshot.TotalAssets)
	assert.Equal(t, 2, snapshot.Rejected)
	assert.Equal(t, 3, snapshot.ValidAssets, "D has almost no factors")
	assert.Len(t, snapshot.Coverage, len(cfg.Factors))
	assert.Equal(t, 1.0, snapshot.Coverage["roe"])
	assert.Equal(t, 0.25, snapshot.Coverage["crv"])
	assert.Equal(t, 0.75, snapshot.Coverage["growth"])

	assert.Equal(t, []string{"crv"}, snapshot.LowCoverage)
	assert.Greater(t, snapshot.QualityScore, 0.7)
	assert.LessOrEqual(t, snapshot.QualityScore, 1.0)
	assert.True(t, snapshot.Passed)
}

func TestQualityGate_Empty(t *testing.T) {
	gate := NewQualityGate(DefaultConfig())
	snapshot := gate.Check(time.Now(), nil, 3, scoringconfig.Default())

	assert.Equal(t, 0, snapshot.TotalAssets)
	assert.Equal(t, 3, snapshot.Rejected)
	assert.False(t, snapshot.Passed)
	assert.Zero(t, snapshot.QualityScore)
}

func TestQualityGate_calculateScore(t *testing.T) {
	gate := &QualityGate{
		config: Config{},
	}
	weights := map[string]float64{
		"roe":        30,
		"volatility": 30,
		"liquidity":  40,
	}

	tests := []struct {
		name     string
		coverage map[string]float64
		wantMin  float64
		wantMax  float64
	}{
		{
			name:     "perfect coverage",
			coverage: map[string]float64{"roe": 1.0, "volatility": 1.0, "liquidity": 1.0},
			wantMin:  0.99,
			wantMax:  1.01,
		},
		{
			name:     "good coverage",
			coverage: map[string]float64{"roe": 0.95, "volatility": 0.90, "liquidity": 0.85},
			wantMin:  0.85,
			wantMax:  0.95,
		},
		{
			name:     "missing factor counts as zero",
			coverage: map[string]float64{"roe": 1.0, "volatility": 1.0},
			wantMin:  0.59,
			wantMax:  0.61,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := gate.calculateScore(tt.coverage, weights)
			assert.GreaterOrEqual(t, score, tt.wantMin)
			assert.LessOrEqual(t, score, tt.wantMax)
			t.Logf("Score: %.4f", score)
		})
	}
}
