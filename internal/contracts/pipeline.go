package contracts

import "time"

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 스냅샷, 메트릭 라벨에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4 → S5    (daily run)
//   Data  Winsorize  Factors  Scoring  Confidence  Snapshot
//   S6                             (offline)
//   Calibration

// Stage represents a pipeline stage
type Stage string

const (
	// StageData S0: CSV 로드 및 행 단위 검증
	// 위치: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageWinsorize S1: 분위수 기반 이상치 클리핑
	// 위치: internal/s1_winsorize/
	StageWinsorize Stage = "S1_WINSORIZE"

	// StageFactors S2: 팩터 정규화 (0-100)
	// 위치: internal/s2_factors/
	StageFactors Stage = "S2_FACTORS"

	// StageScoring S3: Opportunity/Risk/Score + Radar
	// 위치: internal/s3_scoring/
	StageScoring Stage = "S3_SCORING"

	// StageConfidence S4: 신뢰도 추정
	// 위치: internal/s4_confidence/
	StageConfidence Stage = "S4_CONFIDENCE"

	// StageSnapshot S5: 스냅샷 저장 + forward return backfill
	// 위치: internal/s5_snapshot/
	StageSnapshot Stage = "S5_SNAPSHOT"

	// StageCalibration S6: 점수 vs 실현 수익률 검증 (오프라인)
	// 위치: internal/calibration/
	StageCalibration Stage = "S6_CALIBRATION"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageData:
		return "S0"
	case StageWinsorize:
		return "S1"
	case StageFactors:
		return "S2"
	case StageScoring:
		return "S3"
	case StageConfidence:
		return "S4"
	case StageSnapshot:
		return "S5"
	case StageCalibration:
		return "S6"
	default:
		return "UNKNOWN"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageData,
		StageWinsorize,
		StageFactors,
		StageScoring,
		StageConfidence,
		StageSnapshot,
		StageCalibration,
	}
}

// IsValidStage checks if a string is a valid stage
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// RunSummary is the outcome of one daily pipeline run
// ⭐ SSOT: brain → API/metrics/cache 전달
type RunSummary struct {
	RunID      string    `json:"run_id"`
	RunDate    time.Time `json:"run_date"`
	ConfigHash string    `json:"config_hash"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Loaded   int `json:"loaded"`
	Rejected int `json:"rejected"` // kept in the scored CSV with ScoreError
	Scored   int `json:"scored"`

	SnapshotAppended int `json:"snapshot_appended"`
	SnapshotSkipped  int `json:"snapshot_skipped"`

	StageDurations map[Stage]time.Duration `json:"stage_durations"`
	Labels         map[ConfidenceLabel]int `json:"labels"`
}

// Duration returns the wall-clock duration of the run
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
