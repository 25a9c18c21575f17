package scoringconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultYAML = "../../config/scoring/default.yaml"

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Empty(t, Warn(cfg))
}

func TestLoad_DefaultFileMatchesBuiltin(t *testing.T) {
	if _, err := os.Stat(defaultYAML); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(defaultYAML)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, Default(), cfg)

	// 동일 설정 → 동일 해시
	fileHash, err := Hash(cfg)
	require.NoError(t, err)
	builtinHash, err := Hash(Default())
	require.NoError(t, err)
	assert.Len(t, fileHash, 64)
	assert.Equal(t, builtinHash, fileHash)
}

func TestLoad_UnknownFieldFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("score_scael: 2.0\n"), 0o644))

	_, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score_scael")
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "watchlist_v6", cfg.Meta.Name)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHash_ChangesWithWeights(t *testing.T) {
	a := Default()
	b := Default()
	b.Weights.Risk["beta"] = 11
	b.Weights.Risk["crv"] = 14

	ha, _ := Hash(a)
	hb, _ := Hash(b)
	assert.NotEqual(t, ha, hb)
	assert.Len(t, ShortHash(a), 12)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no identifier columns", func(c *Config) { c.Input.IdentifierColumns = nil }, "input.identifier_columns"},
		{"duplicate factor", func(c *Config) { c.Factors = append(c.Factors, c.Factors[0]) }, "factors[17].name"},
		{"missing column", func(c *Config) { c.Factors[0].Column = "" }, "factors[0].column"},
		{"empty domain", func(c *Config) { c.Factors[1].Max = c.Factors[1].Min }, "factors[1]"},
		{"bad direction", func(c *Config) { c.Factors[0].Direction = "up" }, "factors[0].direction"},
		{"log with negative min", func(c *Config) { c.Factors[16].Min = -1 }, "factors[16].min"},
		{"bad require", func(c *Config) { c.Factors[0].Require = "finite" }, "factors[0].require"},
		{"winsorize order", func(c *Config) { c.Winsorize.Lower = 0.99; c.Winsorize.Upper = 0.01 }, "winsorize"},
		{"winsorize sample", func(c *Config) { c.Winsorize.MinSample = 1 }, "winsorize.min_sample"},
		{"weights sum", func(c *Config) { c.Weights.Opportunity["upside"] = 20 }, "weights.opportunity"},
		{"weights unknown", func(c *Config) { c.Weights.Risk["vega"] = 0.0001 }, "weights.risk"},
		{"regime range", func(c *Config) { c.Regimes.Bull.OppWeight = 1.2 }, "regimes.bull.opp_w"},
		{"trend thresholds", func(c *Config) { c.Regimes.TrendThresholds.BearBelow = 0.1 }, "regimes.trend_thresholds"},
		{"bonus points", func(c *Config) { c.Bonuses[0].Points = 0 }, "bonuses[0].points"},
		{"bonus factor", func(c *Config) { c.Bonuses[1].Conditions[0].Factor = "pe" }, "bonuses[1].conditions"},
		{"score scale", func(c *Config) { c.ScoreScale = 0 }, "score_scale"},
		{"confidence thresholds", func(c *Config) { c.Confidence.MedThreshold = 80 }, "confidence"},
		{"confidence trend", func(c *Config) { c.Confidence.TrendFactor = "sma" }, "confidence.trend_factor"},
		{"confidence monotonic", func(c *Config) { c.Confidence.DisagreementPenalty = 30 }, "confidence.disagreement_penalty"},
		{"confidence monotonic without trend", func(c *Config) {
			c.Confidence.ExpectedFactors = withoutFactor(c.Confidence.ExpectedFactors, "trend_200dma")
		}, "confidence.disagreement_penalty"},
		{"radar axis", func(c *Config) { c.Radar.Safety = nil }, "radar.safety"},
		{"calibration top", func(c *Config) { c.Calibration.TopFraction = 0.9 }, "calibration.top_fraction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var vErr ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %T", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestWarn(t *testing.T) {
	cfg := Default()
	cfg.Weights.Opportunity = map[string]float64{"upside": 60, "growth": 40}
	cfg.Confidence.ExpectedFactors = []string{"growth"}

	codes := make([]string, 0)
	for _, w := range Warn(cfg) {
		codes = append(codes, w.Code)
	}
	joined := strings.Join(codes, ",")

	assert.Contains(t, joined, "CONCENTRATED_WEIGHT")
	assert.Contains(t, joined, "FEW_EXPECTED_FACTORS")
	assert.NotContains(t, joined, "INVERTED_REGIME")
}

func TestWinsorizeBounds(t *testing.T) {
	w := Default().Winsorize

	lo, hi := w.Bounds("roe")
	assert.Equal(t, 0.01, lo)
	assert.Equal(t, 0.99, hi)

	lo, hi = w.Bounds("liquidity")
	assert.Equal(t, 0.05, lo)
	assert.Equal(t, 0.95, hi)
}

func TestRegimeParams(t *testing.T) {
	r := Default().Regimes
	assert.Equal(t, 0.65, r.Params("bull").OppWeight)
	assert.Equal(t, 0.85, r.Params("bear").RiskMultiplier)
	assert.Equal(t, 0.55, r.Params("unknown").OppWeight)
}

func withoutFactor(names []string, drop string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != drop {
			out = append(out, n)
		}
	}
	return out
}

func TestValidate_SignalFactorOutsideExpected(t *testing.T) {
	cfg := Default()
	cfg.Confidence.ExpectedFactors = withoutFactor(cfg.Confidence.ExpectedFactors, "relative_strength")
	require.Error(t, Validate(cfg))

	cfg.Confidence.DisagreementPenalty = cfg.Confidence.WeakSignalPenalty
	assert.NoError(t, Validate(cfg))
}
