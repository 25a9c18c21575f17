package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/scanner/pkg/config"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	// Skip if DATABASE_URL is not set
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             url,
			MaxConns:        2,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: time.Minute,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestNewRejectsEmptyURL(t *testing.T) {
	_, err := New(context.Background(), &config.Config{})
	if err == nil {
		t.Fatal("Expected error for empty database URL")
	}
}

func TestNewRejectsMalformedURL(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{URL: "postgres://%zz"}}
	_, err := New(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected parse error for malformed URL")
	}
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}

	if status.Stats.MaxConns != 2 {
		t.Errorf("Expected MaxConns 2, got %d", status.Stats.MaxConns)
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := db.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema run %d failed: %v", i+1, err)
		}
	}
}
