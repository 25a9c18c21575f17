package contracts

import "time"

// DataQualitySnapshot summarizes factor coverage of one loaded run
// ⭐ SSOT: S0 → health report 데이터 품질 정보 전달
type DataQualitySnapshot struct {
	Date         time.Time          `json:"date"`
	TotalAssets  int                `json:"total_assets"`
	ValidAssets  int                `json:"valid_assets"`
	Rejected     int                `json:"rejected"`
	Coverage     map[string]float64 `json:"coverage"`      // factor → share of assets with a value
	LowCoverage  []string           `json:"low_coverage"`  // factors below the minimum coverage
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	Passed       bool               `json:"passed"`        // 품질 검증 통과 여부
}

// IsValid checks if the data quality snapshot meets minimum requirements
func (d *DataQualitySnapshot) IsValid() bool {
	return d.QualityScore >= 0.7 && d.ValidAssets > 0
}

// CoverageRate returns the average coverage rate across all factors
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}
