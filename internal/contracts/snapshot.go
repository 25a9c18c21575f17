package contracts

import (
	"time"
)

// DateLayout is the on-disk date format of snapshot rows
const DateLayout = "2006-01-02"

// SnapshotRow is one (identifier, date) entry of the score history
// ⭐ SSOT: S5 저장 단위, S6 입력
type SnapshotRow struct {
	Identifier string     `json:"identifier"`
	Date       time.Time  `json:"date"`
	RunID      string     `json:"run_id"`
	ConfigHash string     `json:"config_hash"`
	Ticker     string     `json:"ticker,omitempty"`
	Name       string     `json:"name,omitempty"`
	Sector     string     `json:"sector,omitempty"`
	AssetClass AssetClass `json:"asset_class"`
	Regime     Regime     `json:"regime"`
	Close      float64    `json:"close"`

	Score            float64         `json:"score"`
	OpportunityScore float64         `json:"opportunity_score"`
	RiskScore        float64         `json:"risk_score"`
	ConfidenceScore  float64         `json:"confidence_score"`
	ConfidenceLabel  ConfidenceLabel `json:"confidence_label"`

	// RadarVector is kept as text; history files may hold malformed values
	RadarVector string `json:"radar_vector"`

	// ForwardReturn is nil until backfilled; ForwardHorizon is the
	// trading-day horizon it was computed over (0 = unknown)
	ForwardReturn  *float64 `json:"forward_return,omitempty"`
	ForwardHorizon int      `json:"forward_horizon,omitempty"`
}

// ForwardReturnAt returns the stored forward return if it was computed over horizon
func (r SnapshotRow) ForwardReturnAt(horizon int) (float64, bool) {
	if r.ForwardReturn == nil || r.ForwardHorizon != horizon {
		return 0, false
	}
	return *r.ForwardReturn, true
}

// SnapshotKey is the natural key of a snapshot row
type SnapshotKey struct {
	Identifier string
	Date       string // DateLayout
}

// Key returns the (identifier, date) key
func (r SnapshotRow) Key() SnapshotKey {
	return SnapshotKey{Identifier: r.Identifier, Date: r.Date.Format(DateLayout)}
}

// NewSnapshotRow builds the history entry of a scored asset
func NewSnapshotRow(asset ScoredAsset, runID, configHash string, date time.Time) SnapshotRow {
	rec := asset.Record
	res := asset.Result
	return SnapshotRow{
		Identifier:       rec.Identifier,
		Date:             TruncateDay(date),
		RunID:            runID,
		ConfigHash:       configHash,
		Ticker:           rec.Ticker,
		Name:             rec.Name,
		Sector:           rec.Sector,
		AssetClass:       rec.AssetClass,
		Regime:           res.Regime,
		Close:            rec.Close,
		Score:            res.Score,
		OpportunityScore: res.OpportunityScore,
		RiskScore:        res.RiskScore,
		ConfidenceScore:  res.ConfidenceScore,
		ConfidenceLabel:  res.ConfidenceLabel,
		RadarVector:      res.Radar.JSON(),
	}
}

// TruncateDay drops the time-of-day (UTC calendar date)
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AppendResult reports what an append did
type AppendResult struct {
	Appended int `json:"appended"`
	Skipped  int `json:"skipped"` // existing (identifier, date) keys
}

// StoreStats summarizes the snapshot history (health report)
type StoreStats struct {
	Rows              int       `json:"rows"`
	Identifiers       int       `json:"identifiers"`
	Dates             int       `json:"dates"`
	FirstDate         time.Time `json:"first_date,omitempty"`
	LastDate          time.Time `json:"last_date,omitempty"`
	WithForwardReturn int       `json:"with_forward_return"`
}
