package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/report"
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "입력/이력 상태 리포트",
	Long: `입력 CSV를 저장 없이 스코어링하고 상태 리포트를 출력합니다.

- 로드/거부 행 수, 거부 사유
- 팩터별 커버리지와 결측 컬럼
- 윈저라이즈 클리핑 현황
- 신뢰도 분포와 점수 통계
- 점수 이력 저장소 통계

Example:
  go run ./cmd/scanner health
  go run ./cmd/scanner health --input data/watchlist.csv`,
	RunE: runHealth,
}

var healthInput string

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().StringVar(&healthInput, "input", "", "입력 CSV 경로 (기본: SCANNER_INPUT_CSV)")
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	input := healthInput
	if input == "" {
		input = a.cfg.Paths.InputCSV
	}

	// dry-run, 결과 CSV 없음. 실패해도 부분 리포트는 출력
	result, runErr := a.orchestrator.Run(ctx, brain.RunConfig{InputPath: input, DryRun: true})

	stats, err := a.store.Stats(ctx)
	if err != nil {
		a.log.WithError(err).Warn("Snapshot store stats unavailable")
	}

	if err := report.BuildHealth(result, stats).WriteText(cmd.OutOrStdout()); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("pipeline: %w", runErr)
	}
	return nil
}
