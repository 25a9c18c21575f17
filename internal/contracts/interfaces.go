package contracts

import (
	"context"
	"time"
)

// SnapshotStore persists the score history (S5)
// ⭐ SSOT: 스냅샷 저장소 인터페이스 (CSV / Postgres)
//
// The store is append-only: existing (identifier, date) rows are never
// rewritten except for the forward-return cell during backfill.
type SnapshotStore interface {
	// Append adds rows whose key is not yet stored
	Append(ctx context.Context, rows []SnapshotRow) (AppendResult, error)

	// Load returns rows with from <= date <= to; zero bounds are open
	Load(ctx context.Context, from, to time.Time) ([]SnapshotRow, error)

	// BackfillForwardReturns fills forward returns horizon trading days ahead
	BackfillForwardReturns(ctx context.Context, horizon int) (int, error)

	// Stats summarizes the stored history
	Stats(ctx context.Context) (StoreStats, error)
}
