package quality

import (
	"sort"
	"time"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
)

// QualityGate checks factor coverage of a loaded run
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinFactorCoverage float64 `yaml:"min_factor_coverage"` // 0.50: 이하면 LowCoverage
	MinAssetCoverage  float64 `yaml:"min_asset_coverage"`  // 0.70: 자산별 가중 커버리지
	MinQualityScore   float64 `yaml:"min_quality_score"`   // 0.70
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		MinFactorCoverage: 0.50,
		MinAssetCoverage:  0.70,
		MinQualityScore:   0.70,
	}
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{
		config: config,
	}
}

// Check measures per-factor coverage of the records.
// Weights are the scoring weight tables; unweighted factors count for coverage only.
// ⭐ SSOT: S0 품질 검증
func (g *QualityGate) Check(date time.Time, records []contracts.AssetRecord, rejected int, cfg *scoringconfig.Config) *contracts.DataQualitySnapshot {
	snapshot := &contracts.DataQualitySnapshot{
		Date:        date,
		TotalAssets: len(records),
		Rejected:    rejected,
		Coverage:    make(map[string]float64),
		LowCoverage: []string{},
	}
	if len(records) == 0 {
		return snapshot
	}

	weights := factorWeights(cfg)

	// 1. 팩터별 커버리지
	for _, name := range cfg.FactorNames() {
		present := 0
		for i := range records {
			if _, ok := records[i].Factors[name]; ok {
				present++
			}
		}
		cov := float64(present) / float64(len(records))
		snapshot.Coverage[name] = cov
		if cov < g.config.MinFactorCoverage {
			snapshot.LowCoverage = append(snapshot.LowCoverage, name)
		}
	}
	sort.Strings(snapshot.LowCoverage)

	// 2. 자산별 가중 커버리지
	for i := range records {
		if assetCoverage(records[i], weights) >= g.config.MinAssetCoverage {
			snapshot.ValidAssets++
		}
	}

	// 3. 품질 점수
	snapshot.QualityScore = g.calculateScore(snapshot.Coverage, weights)
	snapshot.Passed = snapshot.QualityScore >= g.config.MinQualityScore && snapshot.ValidAssets > 0

	return snapshot
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64, weights map[string]float64) float64 {
	score, total := 0.0, 0.0
	for key, weight := range weights {
		total += weight
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}
	if total == 0 {
		return 0
	}
	return score / total
}

// factorWeights merges opportunity and risk tables (합계 = 200)
func factorWeights(cfg *scoringconfig.Config) map[string]float64 {
	weights := make(map[string]float64, len(cfg.Weights.Opportunity)+len(cfg.Weights.Risk))
	for name, w := range cfg.Weights.Opportunity {
		weights[name] += w
	}
	for name, w := range cfg.Weights.Risk {
		weights[name] += w
	}
	return weights
}

func assetCoverage(rec contracts.AssetRecord, weights map[string]float64) float64 {
	have, total := 0.0, 0.0
	for name, w := range weights {
		total += w
		if _, ok := rec.Factors[name]; ok {
			have += w
		}
	}
	if total == 0 {
		return 0
	}
	return have / total
}
