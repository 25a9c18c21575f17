package scoringconfig

// Default returns the built-in scoring configuration.
// config/scoring/default.yaml mirrors these values.
func Default() *Config {
	return &Config{
		Meta: Meta{
			Name:    "watchlist_v6",
			Version: "6.1",
		},
		Input: Input{
			IdentifierColumns:   []string{"ISIN", "Ticker", "Symbol"},
			TickerColumns:       []string{"Ticker", "Symbol"},
			NameColumn:          "Name",
			SectorColumn:        "Sektor",
			CurrencyColumn:      "Currency",
			CloseColumns:        []string{"Akt. Kurs", "Akt. Kurs [€]", "Close"},
			ElliottSignalColumn: "Elliott-Signal",
			ElliottTargetColumn: "Elliott-Ausstieg",
			RegimeColumns:       ClassColumns{Stock: "MarketRegimeStock", Crypto: "MarketRegimeCrypto"},
			TrendColumns:        ClassColumns{Stock: "MarketTrend200Stock", Crypto: "MarketTrend200Crypto"},
			MissingTokens:       []string{"nan", "NaN", "-", "n/a"},
		},
		Factors: []FactorRule{
			// Opportunity (higher = better)
			{Name: "growth", Column: "Growth %", Min: -20, Max: 50, Direction: DirectionNormal, Transform: TransformLinear},
			{Name: "roe", Column: "ROE %", Min: -50, Max: 50, Direction: DirectionNormal, Transform: TransformLinear},
			{Name: "margin", Column: "Margin %", Min: -20, Max: 40, Direction: DirectionNormal, Transform: TransformLinear},
			{Name: "mc_prob", Column: "MC-Chance", Min: 0, Max: 100, Direction: DirectionNormal, Transform: TransformLinear},
			{Name: "analyst", Column: "Analyst Rating", Min: 1, Max: 5, Direction: DirectionInverted, Transform: TransformLinear},
			{Name: "upside", Column: "Upside %", Min: -30, Max: 100, Direction: DirectionNormal, Transform: TransformLinear},
			{Name: FactorElliottQuality, Min: 0, Max: 1, Direction: DirectionNormal, Transform: TransformLinear},
			{Name: FactorTargetDistance, Min: -0.2, Max: 0.5, Direction: DirectionNormal, Transform: TransformLinear},
			{Name: "trend_200dma", Column: "Trend200", Min: -0.3, Max: 0.3, Direction: DirectionNormal, Transform: TransformLinear},
			{Name: "relative_strength", Column: "RS3M", Min: -0.3, Max: 0.3, Direction: DirectionNormal, Transform: TransformLinear},
			// Risk (normalized higher = safer)
			{Name: "volatility", Column: "Volatility", Min: 0, Max: 1, Direction: DirectionInverted, Transform: TransformLinear},
			{Name: "max_drawdown", Column: "MaxDrawdown", Min: -0.8, Max: 0, Direction: DirectionNormal, Transform: TransformLinear},
			{Name: "beta", Column: "Beta", Min: 0, Max: 2.5, Direction: DirectionInverted, Transform: TransformLinear},
			{Name: "debt_to_equity", Column: "Debt/Equity", Min: 0, Max: 3, Direction: DirectionInverted, Transform: TransformLinear, Require: RequireNonNegative},
			{Name: "downside_dev", Column: "DownsideDev", Min: 0, Max: 0.8, Direction: DirectionInverted, Transform: TransformLinear},
			{Name: "crv", Column: "CRV", Min: 0, Max: 5, Direction: DirectionNormal, Transform: TransformLinear, Require: RequirePositive},
			{Name: "liquidity", Column: "DollarVolume", Min: 0, Max: 10000000000, Direction: DirectionNormal, Transform: TransformLog},
		},
		Normalization: Normalization{
			Neutral: 50,
		},
		Winsorize: Winsorize{
			Lower:     0.01,
			Upper:     0.99,
			MinSample: 10,
			Factors: []string{
				"growth", "roe", "margin", "upside", FactorTargetDistance,
				"trend_200dma", "relative_strength", "volatility", "max_drawdown",
				"beta", "debt_to_equity", "downside_dev", "crv", "liquidity",
			},
			Overrides: map[string]QuantilePair{
				"liquidity": {Lower: 0.05, Upper: 0.95},
			},
		},
		Weights: Weights{
			Opportunity: map[string]float64{
				"upside":            15,
				"growth":            12.5,
				"roe":               11.25,
				"margin":            8.75,
				"analyst":           7.5,
				"mc_prob":           10,
				"elliott_quality":   11.25,
				"target_distance":   6.25,
				"trend_200dma":      7.5,
				"relative_strength": 10,
			},
			Risk: map[string]float64{
				"volatility":     19,
				"max_drawdown":   19,
				"beta":           10,
				"debt_to_equity": 12,
				"downside_dev":   13,
				"crv":            15,
				"liquidity":      12,
			},
		},
		Regimes: Regimes{
			Bull:    RegimeParams{OppWeight: 0.65, RiskWeight: 0.35, RiskMultiplier: 0.60},
			Neutral: RegimeParams{OppWeight: 0.55, RiskWeight: 0.45, RiskMultiplier: 0.70},
			Bear: RegimeParams{
				OppWeight:        0.45,
				RiskWeight:       0.55,
				RiskMultiplier:   0.85,
				PreferredSectors: []string{"Utilities", "Consumer Defensive", "Healthcare"},
			},
			TrendThresholds: TrendThresholds{BearBelow: 0, BullFrom: 0.05},
		},
		Bonuses: []BonusRule{
			{
				Name:   "elliott_buy_in_uptrend",
				Kind:   "technical",
				Points: 10,
				Conditions: []BonusCondition{
					{Factor: FactorElliottQuality, Min: 100},
					{Factor: "trend_200dma", Min: 60},
				},
			},
			{
				Name:   "quality_compounder",
				Kind:   "fundamental",
				Points: 10,
				Conditions: []BonusCondition{
					{Factor: "roe", Min: 70},
					{Factor: "margin", Min: 60},
					{Factor: "growth", Min: 60},
				},
			},
		},
		ScoreScale: 2.0,
		Confidence: Confidence{
			ExpectedFactors: []string{
				"growth", "roe", "margin", "mc_prob", "trend_200dma",
				"relative_strength", "volatility", "max_drawdown", "debt_to_equity", "liquidity",
			},
			MissingPenalty:      10,
			TrendFactor:         "trend_200dma",
			StrengthFactor:      "relative_strength",
			SignalBand:          5,
			DisagreementPenalty: 15,
			WeakSignalPenalty:   5,
			RegimePenalty:       10,
			HighThreshold:       75,
			MedThreshold:        50,
		},
		Radar: Radar{
			Growth:        []string{"growth"},
			Profitability: []string{"roe", "margin"},
			Safety:        []string{"debt_to_equity", "volatility", "max_drawdown"},
			Technical:     []string{"trend_200dma", "relative_strength", FactorElliottQuality},
			Valuation:     []string{"upside", FactorTargetDistance, "analyst"},
		},
		Calibration: Calibration{
			LookbackDays: 60,
			HorizonDays:  20,
			TopFraction:  0.10,
		},
	}
}
