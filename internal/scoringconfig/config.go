package scoringconfig

// Config는 스코어링 파이프라인의 전체 설정 (S0-S6)
// ⭐ SSOT: 가중치/도메인/임계값은 코드가 아니라 이 설정에서만 정의
type Config struct {
	Meta          Meta          `yaml:"meta" json:"meta"`
	Input         Input         `yaml:"input" json:"input"`
	Factors       []FactorRule  `yaml:"factors" json:"factors"`
	Normalization Normalization `yaml:"normalization" json:"normalization"`
	Winsorize     Winsorize     `yaml:"winsorize" json:"winsorize"`
	Weights       Weights       `yaml:"weights" json:"weights"`
	Regimes       Regimes       `yaml:"regimes" json:"regimes"`
	Bonuses       []BonusRule   `yaml:"bonuses" json:"bonuses"`
	ScoreScale    float64       `yaml:"score_scale" json:"score_scale"`
	Confidence    Confidence    `yaml:"confidence" json:"confidence"`
	Radar         Radar         `yaml:"radar" json:"radar"`
	Calibration   Calibration   `yaml:"calibration" json:"calibration"`
}

// Meta 메타 정보
type Meta struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// Input S0: CSV 컬럼 매핑
type Input struct {
	IdentifierColumns   []string     `yaml:"identifier_columns" json:"identifier_columns"` // 우선순위 순
	TickerColumns       []string     `yaml:"ticker_columns" json:"ticker_columns"`
	NameColumn          string       `yaml:"name_column" json:"name_column"`
	SectorColumn        string       `yaml:"sector_column" json:"sector_column"`
	CurrencyColumn      string       `yaml:"currency_column" json:"currency_column"`
	CloseColumns        []string     `yaml:"close_columns" json:"close_columns"`
	ElliottSignalColumn string       `yaml:"elliott_signal_column" json:"elliott_signal_column"`
	ElliottTargetColumn string       `yaml:"elliott_target_column" json:"elliott_target_column"`
	RegimeColumns       ClassColumns `yaml:"regime_columns" json:"regime_columns"`
	TrendColumns        ClassColumns `yaml:"trend_columns" json:"trend_columns"`
	MissingTokens       []string     `yaml:"missing_tokens" json:"missing_tokens"`
}

// ClassColumns maps asset class → column name
type ClassColumns struct {
	Stock  string `yaml:"stock" json:"stock"`
	Crypto string `yaml:"crypto" json:"crypto"`
}

// Direction of a factor rule
const (
	DirectionNormal   = "normal"
	DirectionInverted = "inverted"
)

// Transform of a factor rule
const (
	TransformLinear = "linear"
	TransformLog    = "log"
)

// Require policies for raw values
const (
	RequireAny         = ""
	RequirePositive    = "positive"     // <= 0 → missing (e.g. CRV without setup)
	RequireNonNegative = "non_negative" // < 0 → missing (e.g. negative equity D/E)
)

// Derived factors are computed by the loader, not read from a column
const (
	FactorTargetDistance = "target_distance"
	FactorElliottQuality = "elliott_quality"
)

// DerivedFactors lists factor names that need no column
var DerivedFactors = map[string]bool{
	FactorTargetDistance: true,
	FactorElliottQuality: true,
}

// FactorRule S2: raw → 0-100 정규화 규칙
type FactorRule struct {
	Name      string  `yaml:"name" json:"name"`
	Column    string  `yaml:"column" json:"column"` // 빈 값 = derived factor
	Min       float64 `yaml:"min" json:"min"`
	Max       float64 `yaml:"max" json:"max"`
	Direction string  `yaml:"direction" json:"direction"` // normal | inverted
	Transform string  `yaml:"transform" json:"transform"` // linear | log
	Require   string  `yaml:"require,omitempty" json:"require,omitempty"`
}

// Normalization 공통 정규화 설정
type Normalization struct {
	Neutral float64 `yaml:"neutral" json:"neutral"` // missing raw → neutral
}

// Winsorize S1: 분위수 클리핑
type Winsorize struct {
	Lower     float64                 `yaml:"lower" json:"lower"`
	Upper     float64                 `yaml:"upper" json:"upper"`
	MinSample int                     `yaml:"min_sample" json:"min_sample"`
	Factors   []string                `yaml:"factors" json:"factors"`
	Overrides map[string]QuantilePair `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// QuantilePair is a per-factor quantile override
type QuantilePair struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
}

// Bounds returns the quantiles for a factor
func (w Winsorize) Bounds(factor string) (float64, float64) {
	if o, ok := w.Overrides[factor]; ok {
		return o.Lower, o.Upper
	}
	return w.Lower, w.Upper
}

// Weights S3: 팩터 가중치 (각 테이블 합 = 100)
type Weights struct {
	Opportunity map[string]float64 `yaml:"opportunity" json:"opportunity"`
	Risk        map[string]float64 `yaml:"risk" json:"risk"`
}

// Regimes S3: 시장 국면별 블렌딩 파라미터
type Regimes struct {
	Bull            RegimeParams    `yaml:"bull" json:"bull"`
	Neutral         RegimeParams    `yaml:"neutral" json:"neutral"`
	Bear            RegimeParams    `yaml:"bear" json:"bear"`
	TrendThresholds TrendThresholds `yaml:"trend_thresholds" json:"trend_thresholds"`
}

// RegimeParams blend weights of one regime
type RegimeParams struct {
	OppWeight        float64  `yaml:"opp_w" json:"opp_w"`
	RiskWeight       float64  `yaml:"risk_w" json:"risk_w"`
	RiskMultiplier   float64  `yaml:"risk_mult" json:"risk_mult"`
	PreferredSectors []string `yaml:"preferred_sectors,omitempty" json:"preferred_sectors,omitempty"`
}

// TrendThresholds classify the benchmark trend200 when no regime label exists
type TrendThresholds struct {
	BearBelow float64 `yaml:"bear_below" json:"bear_below"` // trend < bear_below → bear
	BullFrom  float64 `yaml:"bull_from" json:"bull_from"`   // trend >= bull_from → bull
}

// BonusRule S3: 조건 충족 시 가산점
type BonusRule struct {
	Name       string           `yaml:"name" json:"name"`
	Kind       string           `yaml:"kind" json:"kind"` // technical | fundamental
	Points     float64          `yaml:"points" json:"points"`
	Conditions []BonusCondition `yaml:"conditions" json:"conditions"`
}

// BonusCondition requires a present factor with normalized value >= Min
type BonusCondition struct {
	Factor string  `yaml:"factor" json:"factor"`
	Min    float64 `yaml:"min" json:"min"`
}

// Confidence S4: 신뢰도 패널티
type Confidence struct {
	ExpectedFactors     []string `yaml:"expected_factors" json:"expected_factors"`
	MissingPenalty      float64  `yaml:"missing_penalty" json:"missing_penalty"`
	TrendFactor         string   `yaml:"trend_factor" json:"trend_factor"`
	StrengthFactor      string   `yaml:"strength_factor" json:"strength_factor"`
	SignalBand          float64  `yaml:"signal_band" json:"signal_band"`
	DisagreementPenalty float64  `yaml:"disagreement_penalty" json:"disagreement_penalty"`
	WeakSignalPenalty   float64  `yaml:"weak_signal_penalty" json:"weak_signal_penalty"`
	RegimePenalty       float64  `yaml:"regime_penalty" json:"regime_penalty"`
	HighThreshold       float64  `yaml:"high_threshold" json:"high_threshold"`
	MedThreshold        float64  `yaml:"med_threshold" json:"med_threshold"`
}

// Radar 5축 요약 (axis → factors)
type Radar struct {
	Growth        []string `yaml:"growth" json:"growth"`
	Profitability []string `yaml:"profitability" json:"profitability"`
	Safety        []string `yaml:"safety" json:"safety"`
	Technical     []string `yaml:"technical" json:"technical"`
	Valuation     []string `yaml:"valuation" json:"valuation"`
}

// Axes returns factor lists in radar axis order
func (r Radar) Axes() [5][]string {
	return [5][]string{r.Growth, r.Profitability, r.Safety, r.Technical, r.Valuation}
}

// Calibration S6: 오프라인 검증 기본값
type Calibration struct {
	LookbackDays int     `yaml:"lookback_days" json:"lookback_days"`
	HorizonDays  int     `yaml:"horizon_days" json:"horizon_days"`
	TopFraction  float64 `yaml:"top_fraction" json:"top_fraction"`
}

// Rule returns the factor rule by name
func (c *Config) Rule(name string) (FactorRule, bool) {
	for _, r := range c.Factors {
		if r.Name == name {
			return r, true
		}
	}
	return FactorRule{}, false
}

// FactorNames returns configured factor names in config order
func (c *Config) FactorNames() []string {
	names := make([]string, 0, len(c.Factors))
	for _, r := range c.Factors {
		names = append(names, r.Name)
	}
	return names
}

// Params returns blend parameters of a regime name (unknown → neutral)
func (r Regimes) Params(regime string) RegimeParams {
	switch regime {
	case "bull":
		return r.Bull
	case "bear":
		return r.Bear
	default:
		return r.Neutral
	}
}
