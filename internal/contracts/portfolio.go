package contracts

import "time"

// PortfolioPosition is one selected asset with its weight (fractions of 1.0)
type PortfolioPosition struct {
	Identifier      string          `json:"identifier"`
	Ticker          string          `json:"ticker,omitempty"`
	Name            string          `json:"name,omitempty"`
	AssetClass      AssetClass      `json:"asset_class"`
	Regime          Regime          `json:"regime"`
	Score           float64         `json:"score"`
	ConfidenceLabel ConfidenceLabel `json:"confidence_label"`

	DollarVolume  *float64 `json:"dollar_volume,omitempty"`
	LiquidityRisk float64  `json:"liquidity_risk"` // 0 = very liquid, 1 = illiquid

	RawWeight      float64 `json:"raw_weight"`      // score share
	AdjustedWeight float64 `json:"adjusted_weight"` // raw × (1 − liquidity risk)
	Weight         float64 `json:"weight"`          // final, after bounds and exposure caps
}

// PortfolioCriteria records the selection parameters of a portfolio
type PortfolioCriteria struct {
	MinScore     float64 `json:"min_score"`
	TopN         int     `json:"top_n"`
	MaxPositions int     `json:"max_positions"`
	AllowCrypto  bool    `json:"allow_crypto"`
}

// Portfolio is the score-weighted model portfolio of one run
// ⭐ SSOT: 포트폴리오 결과 DTO (매매 없음)
type Portfolio struct {
	RunID       string    `json:"run_id,omitempty"`
	RunDate     time.Time `json:"run_date"`
	GeneratedAt time.Time `json:"generated_at"`

	EquityRegime      Regime  `json:"equity_regime"`
	CryptoRegime      Regime  `json:"crypto_regime,omitempty"`
	MaxEquityExposure float64 `json:"max_equity_exposure"`
	MaxCryptoExposure float64 `json:"max_crypto_exposure"`

	Candidates int                 `json:"candidates"` // assets passing the filters
	Positions  []PortfolioPosition `json:"positions"`
	Cash       float64             `json:"cash"`

	Criteria PortfolioCriteria `json:"criteria"`
}

// TotalWeight returns the invested share
func (p *Portfolio) TotalWeight() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += pos.Weight
	}
	return total
}

// ClassWeight returns the invested share of one asset class
func (p *Portfolio) ClassWeight(class AssetClass) float64 {
	total := 0.0
	for _, pos := range p.Positions {
		if pos.AssetClass == class {
			total += pos.Weight
		}
	}
	return total
}
