package portfolio

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wonny/scanner/internal/contracts"
)

// Constraints bounds single positions
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	MaxWeight float64  // 종목당 최대 비중 (0.0 ~ 1.0)
	MinWeight float64  // 종목당 최소 비중 (0.0 ~ 1.0)
	Exclude   []string // 제외 식별자/티커
}

// IsExcluded checks identifier and ticker against the exclude list (case-insensitive)
func (c *Constraints) IsExcluded(asset contracts.ScoredAsset) bool {
	return slices.ContainsFunc(c.Exclude, func(x string) bool {
		x = strings.TrimSpace(x)
		return x != "" && (strings.EqualFold(x, asset.Record.Identifier) || strings.EqualFold(x, asset.Record.Ticker))
	})
}

// DefaultConstraints returns the default bounds: 1% .. 15% per position
func DefaultConstraints() Constraints {
	return Constraints{
		MaxWeight: 0.15,
		MinWeight: 0.01,
		Exclude:   []string{},
	}
}

// ExposureLimits is the maximum invested share of one asset class per regime
type ExposureLimits struct {
	Bull    float64
	Neutral float64
	Bear    float64
}

// For returns the limit of a regime (unknown = neutral)
func (l ExposureLimits) For(regime contracts.Regime) float64 {
	switch regime {
	case contracts.RegimeBull:
		return l.Bull
	case contracts.RegimeBear:
		return l.Bear
	default:
		return l.Neutral
	}
}

// Config defines portfolio selection parameters
type Config struct {
	TopN         int     // 점수 상위 N
	MaxPositions int     // 최대 종목 수
	MinScore     float64 // 최소 점수
	BearMinScore float64 // bear 국면 종목은 점수 > BearMinScore
	AllowCrypto  bool

	Equity ExposureLimits
	Crypto ExposureLimits
}

// DefaultConfig returns the default selection: top 10 with score >= 30
func DefaultConfig() Config {
	return Config{
		TopN:         10,
		MaxPositions: 20,
		MinScore:     30,
		BearMinScore: 50,
		AllowCrypto:  true,
		Equity:       ExposureLimits{Bull: 1.0, Neutral: 0.7, Bear: 0.4},
		Crypto:       ExposureLimits{Bull: 0.15, Neutral: 0.10, Bear: 0.05},
	}
}

// Validate checks ranges and that the bounds are satisfiable
func Validate(cfg Config, cons Constraints) error {
	if cfg.TopN <= 0 {
		return fmt.Errorf("top_n must be > 0, got %d", cfg.TopN)
	}
	if cfg.MaxPositions <= 0 {
		return fmt.Errorf("max_positions must be > 0, got %d", cfg.MaxPositions)
	}
	if cfg.MinScore < 0 {
		return fmt.Errorf("min_score must be >= 0, got %.2f", cfg.MinScore)
	}
	for name, l := range map[string]ExposureLimits{"equity": cfg.Equity, "crypto": cfg.Crypto} {
		for _, v := range []float64{l.Bull, l.Neutral, l.Bear} {
			if v < 0 || v > 1 {
				return fmt.Errorf("%s exposure must be in [0, 1], got %.2f", name, v)
			}
		}
	}
	if !(0 <= cons.MinWeight && cons.MinWeight <= cons.MaxWeight && cons.MaxWeight <= 1) || cons.MaxWeight == 0 {
		return fmt.Errorf("weights must satisfy 0 <= min <= max <= 1, max > 0 (got %.4f, %.4f)", cons.MinWeight, cons.MaxWeight)
	}
	if n := min(cfg.TopN, cfg.MaxPositions); float64(n)*cons.MinWeight > 1 {
		return fmt.Errorf("min weight %.4f × %d positions exceeds 100%%", cons.MinWeight, n)
	}
	return nil
}
