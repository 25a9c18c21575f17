package s2_factors

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

func rule(min, max float64, direction, transform string) scoringconfig.FactorRule {
	return scoringconfig.FactorRule{Name: "f", Column: "F", Min: min, Max: max, Direction: direction, Transform: transform}
}

func TestNormalize(t *testing.T) {
	linear := scoringconfig.TransformLinear
	normal, inverted := scoringconfig.DirectionNormal, scoringconfig.DirectionInverted

	tests := []struct {
		name        string
		raw         float64
		rule        scoringconfig.FactorRule
		want        float64
		wantMissing bool
	}{
		{"roe example", 0.22, rule(-0.5, 0.5, normal, linear), 72, false},
		{"volatility inverted", 0.6, rule(0, 1, inverted, linear), 40, false},
		{"domain min", -0.5, rule(-0.5, 0.5, normal, linear), 0, false},
		{"domain max", 0.5, rule(-0.5, 0.5, normal, linear), 100, false},
		{"clamped above", 3, rule(-0.5, 0.5, normal, linear), 100, false},
		{"clamped below inverted", -3, rule(0, 1, inverted, linear), 100, false},
		{"log mid", math.Expm1(0.5 * math.Log1p(1e10)), rule(0, 1e10, normal, scoringconfig.TransformLog), 50, false},
		{"log below min", -5, rule(0, 1e10, normal, scoringconfig.TransformLog), 0, false},
		{"nan is missing", math.NaN(), rule(0, 1, normal, linear), 50, true},
		{"inf is missing", math.Inf(1), rule(0, 1, normal, linear), 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := Normalize(tt.raw, true, tt.rule, 50)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestNormalize_RangeProperty(t *testing.T) {
	rules := []scoringconfig.FactorRule{
		rule(-20, 50, scoringconfig.DirectionNormal, scoringconfig.TransformLinear),
		rule(1, 5, scoringconfig.DirectionInverted, scoringconfig.TransformLinear),
		rule(0, 1e10, scoringconfig.DirectionNormal, scoringconfig.TransformLog),
	}
	raws := []float64{-1e9, -100, -1, -0.5, 0, 0.3, 1, 3, 42, 1e6, 1e12}
	for _, r := range rules {
		for _, raw := range raws {
			v, missing := Normalize(raw, true, r, 50)
			assert.False(t, missing)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestNormalizer_NormalizeRecord(t *testing.T) {
	cfg := scoringconfig.Default()
	n := NewNormalizer(cfg, logger.NewNop())

	rec := contracts.AssetRecord{
		Identifier: "X",
		Factors: map[string]float64{
			"roe":        22,
			"volatility": 0.6,
		},
	}
	nf := n.NormalizeRecord(rec)

	assert.Len(t, nf.Values, len(cfg.Factors), "every configured factor present")
	assert.InDelta(t, 72, nf.Values["roe"], 1e-9)
	assert.InDelta(t, 40, nf.Values["volatility"], 1e-9)
	assert.False(t, nf.IsMissing("roe"))

	assert.Equal(t, 50.0, nf.Values["growth"])
	assert.True(t, nf.IsMissing("growth"))
	assert.Equal(t, len(cfg.Factors)-2, len(nf.Missing))
}

func TestNormalizer_Value(t *testing.T) {
	n := NewNormalizer(scoringconfig.Default(), logger.NewNop())

	v, err := n.Value("roe", 22)
	require.NoError(t, err)
	assert.InDelta(t, 72, v, 1e-9)

	_, err = n.Value("pe_ratio", 10)
	assert.True(t, errors.Is(err, ErrUnknownRule))
}

func TestNormalizer_NormalizeAll(t *testing.T) {
	n := NewNormalizer(scoringconfig.Default(), logger.NewNop())
	out := n.NormalizeAll([]contracts.AssetRecord{
		{Identifier: "A", Factors: map[string]float64{"beta": 0}},
		{Identifier: "B", Factors: map[string]float64{"beta": 2.5}},
	})

	require.Len(t, out, 2)
	assert.Equal(t, 100.0, out[0].Values["beta"])
	assert.Equal(t, 0.0, out[1].Values["beta"])
}
