package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wonny/scanner/pkg/config"
)

// DB wraps the pgxpool.Pool and provides additional functionality
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool
// ⭐ SSOT: 유일하게 pgxpool.NewWithConfig()를 호출하는 함수
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// ============================================================================
// Schema
// ============================================================================

// snapshotSchema is the append-only score history table.
// (identifier, snapshot_date) is the natural key; forward_return stays NULL until backfilled
// and forward_horizon records the trading-day horizon it was computed over.
const snapshotSchema = `
CREATE SCHEMA IF NOT EXISTS scanner;

CREATE TABLE IF NOT EXISTS scanner.score_snapshots (
    identifier        TEXT        NOT NULL,
    snapshot_date     DATE        NOT NULL,
    run_id            TEXT        NOT NULL,
    config_hash       TEXT        NOT NULL,
    ticker            TEXT        NOT NULL DEFAULT '',
    name              TEXT        NOT NULL DEFAULT '',
    sector            TEXT        NOT NULL DEFAULT '',
    asset_class       TEXT        NOT NULL DEFAULT 'stock',
    regime            TEXT        NOT NULL DEFAULT 'neutral',
    close_price       DOUBLE PRECISION,
    score             DOUBLE PRECISION NOT NULL,
    opportunity_score DOUBLE PRECISION NOT NULL,
    risk_score        DOUBLE PRECISION NOT NULL,
    confidence_score  DOUBLE PRECISION NOT NULL,
    confidence_label  TEXT        NOT NULL,
    radar_vector      TEXT        NOT NULL,
    forward_return    DOUBLE PRECISION,
    forward_horizon   INTEGER,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (identifier, snapshot_date)
);

ALTER TABLE scanner.score_snapshots
    ADD COLUMN IF NOT EXISTS forward_horizon INTEGER;

CREATE INDEX IF NOT EXISTS idx_score_snapshots_date
    ON scanner.score_snapshots (snapshot_date);
`

// EnsureSchema creates the snapshot table if it does not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

// ============================================================================
// Health
// ============================================================================

// HealthCheck returns detailed health information about the database
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Healthy:   false,
		Timestamp: time.Now(),
	}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)
	status.Stats = db.Stats()
	status.Healthy = true

	return status, nil
}

// HealthStatus represents the health status of the database
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
}

// PoolStats represents connection pool statistics
type PoolStats struct {
	AcquireCount  int64 `json:"acquire_count"`
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`
	TotalConns    int32 `json:"total_conns"`
}

// Stats returns the current pool statistics
func (db *DB) Stats() PoolStats {
	stats := db.Pool.Stat()
	return PoolStats{
		AcquireCount:  stats.AcquireCount(),
		AcquiredConns: stats.AcquiredConns(),
		IdleConns:     stats.IdleConns(),
		MaxConns:      stats.MaxConns(),
		TotalConns:    stats.TotalConns(),
	}
}
