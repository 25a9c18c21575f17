package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/scanner/pkg/config"
)

var (
	// Global flags
	scoringConfigFile string
	verbose           bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Watchlist scanner - 팩터 스코어링 파이프라인",
	Long: `Watchlist Scanner CLI

워치리스트 CSV를 읽어 0~200 점수, 신뢰도, 레이더 벡터를 계산하고
점수 이력을 저장한 뒤 사후 검증(calibration)을 수행합니다.

S0 Load → S1 Winsorize → S2 Normalize → S3 Compose → S4 Confidence → S5 Snapshot
S6 Calibrate (offline)

Examples:
  go run ./cmd/scanner run
  go run ./cmd/scanner run --date 2026-03-02 --dry-run
  go run ./cmd/scanner calibrate --lookback 60 --horizon 20
  go run ./cmd/scanner api --scheduler`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&scoringConfigFile, "scoring-config", "", "scoring YAML (default: SCANNER_SCORING_CONFIG or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the environment and applies global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if scoringConfigFile != "" {
		cfg.Paths.ScoringConfig = scoringConfigFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
