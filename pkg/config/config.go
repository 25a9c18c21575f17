package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the scanner
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Pipeline files
	Paths PathsConfig

	// Snapshot store backend
	Snapshot SnapshotConfig

	// Database (only used when Snapshot.Backend == "postgres")
	Database DatabaseConfig

	// Redis (latest-run cache for the API)
	Redis RedisConfig

	// Alerts
	Telegram TelegramConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// PathsConfig holds input/output file locations
type PathsConfig struct {
	InputCSV      string
	OutputCSV     string
	ScoringConfig string // empty = built-in defaults
	DashboardHTML string
}

// Snapshot store backends
const (
	SnapshotBackendCSV      = "csv"
	SnapshotBackendPostgres = "postgres"
)

// SnapshotConfig selects and configures the snapshot store
type SnapshotConfig struct {
	Backend string // csv | postgres
	CSVPath string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	Enabled  bool
	Token    string
	ChatID   string
	BaseURL  string
	TopN     int
	MinScore float64
}

// SchedulerConfig holds cron expressions (with seconds field)
type SchedulerConfig struct {
	RunCron       string
	BackfillCron  string
	CalibrateCron string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Paths: PathsConfig{
			InputCSV:      getEnv("SCANNER_INPUT_CSV", "data/watchlist.csv"),
			OutputCSV:     getEnv("SCANNER_OUTPUT_CSV", "artifacts/watchlist_scored.csv"),
			ScoringConfig: getEnv("SCANNER_SCORING_CONFIG", ""),
			DashboardHTML: getEnv("SCANNER_DASHBOARD_HTML", "artifacts/dashboard.html"),
		},

		Snapshot: SnapshotConfig{
			Backend: strings.ToLower(getEnv("SNAPSHOT_BACKEND", "csv")),
			CSVPath: getEnv("SNAPSHOT_CSV", "data/snapshots/score_history.csv"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "26h"),
		},

		Telegram: TelegramConfig{
			Enabled:  getEnvAsBool("TELEGRAM_ENABLED", false),
			Token:    firstEnv("TELEGRAM_BOT_TOKEN", "TELEGRAM_TOKEN"),
			ChatID:   firstEnv("TELEGRAM_CHAT_ID", "TELEGRAM_CHANNEL_ID"),
			BaseURL:  getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
			TopN:     getEnvAsInt("TELEGRAM_TOP_N", 5),
			MinScore: getEnvAsFloat("TELEGRAM_MIN_SCORE", 100),
		},

		Scheduler: SchedulerConfig{
			RunCron:       getEnv("SCHEDULE_RUN", "0 30 22 * * 1-5"),
			BackfillCron:  getEnv("SCHEDULE_BACKFILL", "0 45 22 * * 1-5"),
			CalibrateCron: getEnv("SCHEDULE_CALIBRATE", "0 0 8 * * 6"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Snapshot.Backend {
	case SnapshotBackendCSV:
		if c.Snapshot.CSVPath == "" {
			return fmt.Errorf("SNAPSHOT_CSV is required for the csv backend")
		}
	case SnapshotBackendPostgres:
		// Database URL is required only for the postgres backend
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when SNAPSHOT_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("SNAPSHOT_BACKEND must be csv or postgres, got %q", c.Snapshot.Backend)
	}

	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when TELEGRAM_ENABLED=true")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty variable (legacy names supported)
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
