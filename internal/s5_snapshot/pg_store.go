package s5_snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/pkg/logger"
)

// PGStore keeps the snapshot history in scanner.score_snapshots
// ⭐ SSOT: 스냅샷 DB 저장/조회는 여기서만
type PGStore struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPGStore creates a Postgres-backed store
func NewPGStore(pool *pgxpool.Pool, log *logger.Logger) *PGStore {
	return &PGStore{
		pool:   pool,
		logger: log.WithStage(contracts.StageSnapshot.ShortName()).WithField("store", "postgres"),
	}
}

// Append inserts rows; existing (identifier, date) keys are left untouched
func (s *PGStore) Append(ctx context.Context, rows []contracts.SnapshotRow) (contracts.AppendResult, error) {
	var result contracts.AppendResult
	if len(rows) == 0 {
		return result, nil
	}

	query := `
		INSERT INTO scanner.score_snapshots (
			identifier, snapshot_date, run_id, config_hash, ticker, name, sector,
			asset_class, regime, close_price, score, opportunity_score, risk_score,
			confidence_score, confidence_label, radar_vector, forward_return, forward_horizon
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NULLIF($18, 0))
		ON CONFLICT (identifier, snapshot_date) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query,
			r.Identifier, r.Date, r.RunID, r.ConfigHash, r.Ticker, r.Name, r.Sector,
			string(r.AssetClass), string(r.Regime), r.Close, r.Score, r.OpportunityScore, r.RiskScore,
			r.ConfidenceScore, string(r.ConfidenceLabel), r.RadarVector, r.ForwardReturn, r.ForwardHorizon,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range rows {
		tag, err := br.Exec()
		if err != nil {
			return result, fmt.Errorf("insert snapshot %s: %w", rows[i].Identifier, err)
		}
		if tag.RowsAffected() == 1 {
			result.Appended++
		} else {
			result.Skipped++
		}
	}

	if result.Skipped > 0 {
		s.logger.WithField("skipped", result.Skipped).Warn("Snapshot keys already stored, rows skipped")
	}
	s.logger.WithField("appended", result.Appended).Info("Snapshot appended")

	return result, nil
}

// Load returns rows with from <= date <= to (zero bound = open)
func (s *PGStore) Load(ctx context.Context, from, to time.Time) ([]contracts.SnapshotRow, error) {
	query := `
		SELECT identifier, snapshot_date, run_id, config_hash, ticker, name, sector,
		       asset_class, regime, COALESCE(close_price, 0), score, opportunity_score, risk_score,
		       confidence_score, confidence_label, radar_vector, forward_return,
		       COALESCE(forward_horizon, 0)
		FROM scanner.score_snapshots
		WHERE ($1::date IS NULL OR snapshot_date >= $1)
		  AND ($2::date IS NULL OR snapshot_date <= $2)
		ORDER BY snapshot_date, identifier
	`

	rows, err := s.pool.Query(ctx, query, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.SnapshotRow, 0)
	for rows.Next() {
		var r contracts.SnapshotRow
		var assetClass, regime, label string
		if err := rows.Scan(
			&r.Identifier, &r.Date, &r.RunID, &r.ConfigHash, &r.Ticker, &r.Name, &r.Sector,
			&assetClass, &regime, &r.Close, &r.Score, &r.OpportunityScore, &r.RiskScore,
			&r.ConfidenceScore, &label, &r.RadarVector, &r.ForwardReturn,
			&r.ForwardHorizon,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		r.Date = contracts.TruncateDay(r.Date)
		r.AssetClass = contracts.AssetClass(assetClass)
		r.Regime = contracts.Regime(regime)
		r.ConfidenceLabel = contracts.ConfidenceLabel(label)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// BackfillForwardReturns computes forward returns in Go (shared calendar rule)
// and updates only rows whose forward_return is NULL or of another horizon.
func (s *PGStore) BackfillForwardReturns(ctx context.Context, horizon int) (int, error) {
	if horizon <= 0 {
		return 0, fmt.Errorf("horizon must be > 0, got %d", horizon)
	}

	all, err := s.Load(ctx, time.Time{}, time.Time{})
	if err != nil {
		return 0, err
	}
	returns := ForwardReturns(all, horizon)
	if len(returns) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin backfill: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE scanner.score_snapshots
		SET forward_return = $3, forward_horizon = $4
		WHERE identifier = $1 AND snapshot_date = $2
		  AND (forward_return IS NULL OR forward_horizon IS DISTINCT FROM $4)
	`

	updated := 0
	for key, fr := range returns {
		date, err := time.Parse(contracts.DateLayout, key.Date)
		if err != nil {
			return 0, fmt.Errorf("parse key date: %w", err)
		}
		tag, err := tx.Exec(ctx, query, key.Identifier, date, fr, horizon)
		if err != nil {
			return 0, fmt.Errorf("update forward return %s/%s: %w", key.Identifier, key.Date, err)
		}
		updated += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit backfill: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"updated": updated,
		"horizon": horizon,
	}).Info("Forward returns backfilled")

	return updated, nil
}

// Stats summarizes the history
func (s *PGStore) Stats(ctx context.Context) (contracts.StoreStats, error) {
	var stats contracts.StoreStats
	var first, last *time.Time

	query := `
		SELECT COUNT(*),
		       COUNT(DISTINCT identifier),
		       COUNT(DISTINCT snapshot_date),
		       MIN(snapshot_date),
		       MAX(snapshot_date),
		       COUNT(forward_return)
		FROM scanner.score_snapshots
	`
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.Rows, &stats.Identifiers, &stats.Dates, &first, &last, &stats.WithForwardReturn,
	)
	if err != nil {
		return stats, fmt.Errorf("query snapshot stats: %w", err)
	}
	if first != nil {
		stats.FirstDate = contracts.TruncateDay(*first)
	}
	if last != nil {
		stats.LastDate = contracts.TruncateDay(*last)
	}
	return stats, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := contracts.TruncateDay(t)
	return &d
}
