package portfolio

import (
	"time"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/s3_scoring"
	"github.com/wonny/scanner/pkg/logger"
)

// liquidityFactor is the raw dollar-volume factor
const liquidityFactor = "liquidity"

// defaultLiquidityRisk applies when dollar volume is unknown
const defaultLiquidityRisk = 0.5

// Constructor builds a score-weighted model portfolio from a scored run
// ⭐ SSOT: 포트폴리오 구성 로직은 여기서만 (매매 없음)
type Constructor struct {
	config      Config
	constraints Constraints
	logger      *logger.Logger
	now         func() time.Time
}

// NewConstructor creates a new portfolio constructor
func NewConstructor(config Config, constraints Constraints, log *logger.Logger) *Constructor {
	return &Constructor{
		config:      config,
		constraints: constraints,
		logger:      log.WithField("component", "portfolio"),
		now:         time.Now,
	}
}

// Construct selects, weights and caps the portfolio.
// An empty selection is a portfolio of 100% cash, not an error.
func (c *Constructor) Construct(summary contracts.RunSummary, assets []contracts.ScoredAsset) *contracts.Portfolio {
	p := &contracts.Portfolio{
		RunID:       summary.RunID,
		RunDate:     summary.RunDate,
		GeneratedAt: c.now(),
		Positions:   make([]contracts.PortfolioPosition, 0),
		Cash:        1,
		Criteria: contracts.PortfolioCriteria{
			MinScore:     c.config.MinScore,
			TopN:         c.config.TopN,
			MaxPositions: c.config.MaxPositions,
			AllowCrypto:  c.config.AllowCrypto,
		},
	}

	// 1. 필터 + 상위 N
	candidates := c.filter(assets)
	p.Candidates = len(candidates)
	selected := s3_scoring.TopN(candidates, min(c.config.TopN, c.config.MaxPositions))

	p.EquityRegime = conservativeRegime(selected, contracts.AssetStock)
	p.CryptoRegime = conservativeRegime(selected, contracts.AssetCrypto)
	p.MaxEquityExposure = c.config.Equity.For(p.EquityRegime)
	p.MaxCryptoExposure = c.config.Crypto.For(p.CryptoRegime)

	if len(selected) == 0 {
		c.logger.WithField("candidates", p.Candidates).Warn("No assets selected for portfolio")
		return p
	}

	// 2. 점수 비중 + 유동성 조정
	p.Positions = c.calculateWeights(selected)

	// 3. 국면별 자산군 노출 한도
	c.applyExposure(p)
	p.Cash = 1 - p.TotalWeight()
	if p.Cash < 0 {
		p.Cash = 0
	}

	c.logger.WithFields(map[string]interface{}{
		"positions":     len(p.Positions),
		"equity_regime": p.EquityRegime,
		"equity":        p.ClassWeight(contracts.AssetStock),
		"crypto":        p.ClassWeight(contracts.AssetCrypto),
		"cash":          p.Cash,
	}).Info("Portfolio constructed")

	return p
}

// filter keeps assets above the score floors; bear-regime assets need BearMinScore
func (c *Constructor) filter(assets []contracts.ScoredAsset) []contracts.ScoredAsset {
	out := make([]contracts.ScoredAsset, 0, len(assets))
	for _, a := range assets {
		score := a.Result.Score
		switch {
		case score < c.config.MinScore:
			continue
		case a.Result.Regime == contracts.RegimeBear && score <= c.config.BearMinScore:
			continue
		case !c.config.AllowCrypto && a.Record.AssetClass == contracts.AssetCrypto:
			continue
		case c.constraints.IsExcluded(a):
			continue
		}
		out = append(out, a)
	}
	return out
}

// calculateWeights: score share × (1 − liquidity risk), bounded to [MinWeight, MaxWeight]
func (c *Constructor) calculateWeights(selected []contracts.ScoredAsset) []contracts.PortfolioPosition {
	total := 0.0
	for _, a := range selected {
		total += a.Result.Score
	}

	positions := make([]contracts.PortfolioPosition, len(selected))
	adjusted := make([]float64, len(selected))
	for i, a := range selected {
		raw := 1 / float64(len(selected))
		if total > 0 {
			raw = a.Result.Score / total
		}

		pos := contracts.PortfolioPosition{
			Identifier:      a.Record.Identifier,
			Ticker:          a.Record.Ticker,
			Name:            a.Record.Name,
			AssetClass:      a.Record.AssetClass,
			Regime:          a.Result.Regime,
			Score:           a.Result.Score,
			ConfidenceLabel: a.Result.ConfidenceLabel,
			LiquidityRisk:   defaultLiquidityRisk,
			RawWeight:       raw,
		}
		if dv, ok := a.Record.Factor(liquidityFactor); ok {
			v := dv
			pos.DollarVolume = &v
			pos.LiquidityRisk = LiquidityRisk(dv)
		}
		pos.AdjustedWeight = raw * (1 - pos.LiquidityRisk)
		adjusted[i] = pos.AdjustedWeight
		positions[i] = pos
	}

	for i, w := range c.boundedWeights(adjusted) {
		positions[i].Weight = w
	}
	return positions
}

// boundedWeights scales w to sum to 1 with every weight in [MinWeight, MaxWeight].
// When len(w) × MaxWeight < 1 every position sits at MaxWeight and the rest is cash.
func (c *Constructor) boundedWeights(w []float64) []float64 {
	n := len(w)
	out := make([]float64, n)
	capped := make([]bool, n)

	// 상한: 초과분을 나머지에 재분배 (water-filling)
	for range n {
		fixed, free, freeCount := 0.0, 0.0, 0
		for i := range w {
			if capped[i] {
				fixed += out[i]
			} else {
				free += w[i]
				freeCount++
			}
		}
		if freeCount == 0 {
			break
		}
		remaining := 1 - fixed
		for i := range w {
			if capped[i] {
				continue
			}
			if free > 0 {
				out[i] = w[i] / free * remaining
			} else {
				out[i] = remaining / float64(freeCount)
			}
		}

		changed := false
		for i := range w {
			if !capped[i] && out[i] > c.constraints.MaxWeight {
				out[i] = c.constraints.MaxWeight
				capped[i] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// 하한: 부족분은 하한 위 비중에서 비례 차감
	deficit, donors := 0.0, 0.0
	for i := range out {
		if out[i] < c.constraints.MinWeight {
			deficit += c.constraints.MinWeight - out[i]
			out[i] = c.constraints.MinWeight
			capped[i] = false
		} else {
			donors += out[i] - c.constraints.MinWeight
		}
	}
	if deficit > 0 && donors > 0 {
		for i := range out {
			if excess := out[i] - c.constraints.MinWeight; excess > 0 {
				out[i] -= deficit * excess / donors
			}
		}
	}
	return out
}

// applyExposure scales each asset class down to its regime limit
func (c *Constructor) applyExposure(p *contracts.Portfolio) {
	for _, cl := range []struct {
		class contracts.AssetClass
		limit float64
	}{
		{contracts.AssetStock, p.MaxEquityExposure},
		{contracts.AssetCrypto, p.MaxCryptoExposure},
	} {
		total := p.ClassWeight(cl.class)
		if total <= cl.limit || total == 0 {
			continue
		}
		scale := cl.limit / total
		for i := range p.Positions {
			if p.Positions[i].AssetClass == cl.class {
				p.Positions[i].Weight *= scale
			}
		}
		c.logger.WithFields(map[string]interface{}{
			"class": cl.class,
			"from":  total,
			"to":    cl.limit,
		}).Info("Exposure capped")
	}
}

// LiquidityRisk buckets daily dollar volume (0.1 very liquid … 0.9 very illiquid)
func LiquidityRisk(dollarVolume float64) float64 {
	switch {
	case dollarVolume <= 0:
		return defaultLiquidityRisk
	case dollarVolume >= 50_000_000:
		return 0.1
	case dollarVolume >= 10_000_000:
		return 0.2
	case dollarVolume >= 1_000_000:
		return 0.4
	case dollarVolume >= 100_000:
		return 0.7
	default:
		return 0.9
	}
}

// conservativeRegime returns the most defensive regime among the class (bear < neutral < bull)
func conservativeRegime(assets []contracts.ScoredAsset, class contracts.AssetClass) contracts.Regime {
	rank := map[contracts.Regime]int{contracts.RegimeBear: 0, contracts.RegimeNeutral: 1, contracts.RegimeBull: 2}

	var out contracts.Regime
	for _, a := range assets {
		if a.Record.AssetClass != class {
			continue
		}
		r, ok := rank[a.Result.Regime]
		if !ok {
			r = rank[contracts.RegimeNeutral]
		}
		if out == "" || r < rank[out] {
			out = a.Result.Regime
			if !ok {
				out = contracts.RegimeNeutral
			}
		}
	}
	if out == "" && class == contracts.AssetStock {
		return contracts.RegimeNeutral
	}
	return out
}
