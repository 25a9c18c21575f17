package s3_scoring

import (
	"math"
	"sort"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
)

// MaxScore is the upper bound of the final score
const MaxScore = 200.0

// Composer combines normalized factors into Opportunity / Risk / Score (S3).
// Pure: no state besides the immutable config.
// ⭐ SSOT: 점수 합성 로직은 여기서만
type Composer struct {
	opportunity []weightedFactor
	risk        []weightedFactor
	regimes     scoringconfig.Regimes
	bonuses     []scoringconfig.BonusRule
	radar       [5][]string
	scale       float64
}

type weightedFactor struct {
	name   string
	weight float64
}

// NewComposer creates a composer from the scoring config
func NewComposer(cfg *scoringconfig.Config) *Composer {
	return &Composer{
		opportunity: sortedWeights(cfg.Weights.Opportunity),
		risk:        sortedWeights(cfg.Weights.Risk),
		regimes:     cfg.Regimes,
		bonuses:     cfg.Bonuses,
		radar:       cfg.Radar.Axes(),
		scale:       cfg.ScoreScale,
	}
}

// Compose scores one asset under a regime.
// Confidence fields are left empty (S4).
func (c *Composer) Compose(nf contracts.NormalizedFactors, regime contracts.Regime) contracts.ScoreResult {
	params := c.regimes.Params(string(regime))

	opp := weightedMean(nf, c.opportunity, false)
	risk := weightedMean(nf, c.risk, true)

	// Blend = opp_w·Opp − risk_mult·risk_w·Risk
	blend := clamp(params.OppWeight*opp-params.RiskMultiplier*params.RiskWeight*risk, 0, 100)

	bonuses := c.Bonuses(nf)
	total := 0.0
	for _, p := range bonuses {
		total += p
	}

	return contracts.ScoreResult{
		Score:            clamp(blend*c.scale+total, 0, MaxScore),
		OpportunityScore: opp,
		RiskScore:        risk,
		Blend:            blend,
		Bonuses:          bonuses,
		Regime:           regime,
		Radar:            RadarVector(nf, c.radar),
	}
}

// Bonuses returns awarded bonus points by rule name.
// A rule fires only when every listed factor is present and >= its min.
func (c *Composer) Bonuses(nf contracts.NormalizedFactors) map[string]float64 {
	awarded := make(map[string]float64)
	for _, rule := range c.bonuses {
		ok := true
		for _, cond := range rule.Conditions {
			v, present := nf.Get(cond.Factor)
			if !present || v < cond.Min {
				ok = false
				break
			}
		}
		if ok {
			awarded[rule.Name] = rule.Points
		}
	}
	return awarded
}

// RadarVector averages normalized values per axis (2 decimals)
func RadarVector(nf contracts.NormalizedFactors, axes [5][]string) contracts.RadarVector {
	var out contracts.RadarVector
	for i, factors := range axes {
		sum, n := 0.0, 0
		for _, f := range factors {
			if v, ok := nf.Values[f]; ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			out[i] = round2(sum / float64(n))
		}
	}
	return out
}

// weightedMean: Σ w·x / Σ w; invert uses (100 − x) for the risk table
func weightedMean(nf contracts.NormalizedFactors, table []weightedFactor, invert bool) float64 {
	sum, wsum := 0.0, 0.0
	for _, wf := range table {
		x, ok := nf.Values[wf.name]
		if !ok {
			continue
		}
		if invert {
			x = 100 - x
		}
		sum += wf.weight * x
		wsum += wf.weight
	}
	if wsum == 0 {
		return 0
	}
	return clamp(sum/wsum, 0, 100)
}

// sortedWeights fixes summation order so results are bit-identical across runs
func sortedWeights(weights map[string]float64) []weightedFactor {
	out := make([]weightedFactor, 0, len(weights))
	for name, w := range weights {
		out = append(out, weightedFactor{name: name, weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
