package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/scanner/internal/scoringconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "스코어링 설정 관리",
	Long: `스코어링 YAML 설정을 조회/검증합니다.

Subcommands:
  show      - 유효 설정 출력 (YAML)
  validate  - 설정 검증
  hash      - config_hash 출력 (이력 행에 기록되는 값)
  warn      - 검증은 통과하지만 의심스러운 항목

Example:
  go run ./cmd/scanner config validate --scoring-config configs/scoring.yaml
  go run ./cmd/scanner config hash`,
}

var (
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "유효 설정 출력",
		RunE:  showConfig,
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "설정 검증",
		RunE:  validateConfig,
	}

	configHashCmd = &cobra.Command{
		Use:   "hash",
		Short: "config_hash 출력",
		RunE:  hashConfig,
	}

	configWarnCmd = &cobra.Command{
		Use:   "warn",
		Short: "의심스러운 설정 항목",
		RunE:  warnConfig,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configHashCmd)
	configCmd.AddCommand(configWarnCmd)
}

// loadScoringConfig resolves --scoring-config / SCANNER_SCORING_CONFIG / built-in
func loadScoringConfig() (*scoringconfig.Config, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}

	source := cfg.Paths.ScoringConfig
	if source == "" {
		source = "built-in defaults"
	}

	scoring, err := scoringconfig.LoadOrDefault(cfg.Paths.ScoringConfig)
	if err != nil {
		return nil, source, err
	}
	return scoring, source, nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	scoring, source, err := loadScoringConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# source: %s\n# config_hash: %s\n", source, scoringconfig.ShortHash(scoring))

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(scoring); err != nil {
		return fmt.Errorf("encode scoring config: %w", err)
	}
	return enc.Close()
}

func validateConfig(cmd *cobra.Command, args []string) error {
	scoring, source, err := loadScoringConfig()
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, fmt.Sprintf("%s is valid (%d factors, config_hash %s)",
		source, len(scoring.Factors), scoringconfig.ShortHash(scoring)))
	for _, w := range scoringconfig.Warn(scoring) {
		printWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return nil
}

func hashConfig(cmd *cobra.Command, args []string) error {
	scoring, _, err := loadScoringConfig()
	if err != nil {
		return err
	}

	hash, err := scoringconfig.Hash(scoring)
	if err != nil {
		return fmt.Errorf("hash scoring config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func warnConfig(cmd *cobra.Command, args []string) error {
	scoring, _, err := loadScoringConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	warnings := scoringconfig.Warn(scoring)
	if len(warnings) == 0 {
		printSuccess(out, "No warnings")
		return nil
	}
	for _, w := range warnings {
		printWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return nil
}
