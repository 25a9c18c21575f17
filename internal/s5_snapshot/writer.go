package s5_snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/pkg/config"
	"github.com/wonny/scanner/pkg/database"
	"github.com/wonny/scanner/pkg/logger"
)

// Writer turns a scored run into snapshot rows (S5)
type Writer struct {
	store  contracts.SnapshotStore
	logger *logger.Logger
}

// NewWriter creates a new snapshot writer
func NewWriter(store contracts.SnapshotStore, log *logger.Logger) *Writer {
	return &Writer{
		store:  store,
		logger: log.WithStage(contracts.StageSnapshot.ShortName()),
	}
}

// Write appends one row per scored asset for the run date
func (w *Writer) Write(ctx context.Context, assets []contracts.ScoredAsset, runID, configHash string, date time.Time) (contracts.AppendResult, error) {
	rows := make([]contracts.SnapshotRow, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, contracts.NewSnapshotRow(a, runID, configHash, date))
	}

	result, err := w.store.Append(ctx, rows)
	if err != nil {
		return result, fmt.Errorf("append snapshot: %w", err)
	}

	w.logger.WithFields(map[string]interface{}{
		"run_id":   runID,
		"date":     contracts.TruncateDay(date).Format(contracts.DateLayout),
		"appended": result.Appended,
		"skipped":  result.Skipped,
	}).Info("Snapshot written")

	return result, nil
}

// Open returns the configured snapshot store and a close func
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.SnapshotStore, func(), error) {
	switch cfg.Snapshot.Backend {
	case config.SnapshotBackendPostgres:
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect snapshot database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewPGStore(db.Pool, log), db.Close, nil
	default:
		return NewCSVStore(cfg.Snapshot.CSVPath, log), func() {}, nil
	}
}
