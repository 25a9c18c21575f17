package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/scanner/internal/brain"
)

// dashboardCmd represents the dashboard command
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "정적 HTML 대시보드 생성",
	Long: `입력 CSV를 저장 없이 스코어링하고 점수 표, 레이더 값,
점수 분포 차트, 최근 calibration 결과를 HTML 한 파일로 씁니다.

Example:
  go run ./cmd/scanner dashboard
  go run ./cmd/scanner dashboard --out artifacts/dashboard.html`,
	RunE: runDashboardCmd,
}

var (
	dashboardInput string
	dashboardOut   string
)

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().StringVar(&dashboardInput, "input", "", "입력 CSV 경로 (기본: SCANNER_INPUT_CSV)")
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "", "HTML 경로 (기본: SCANNER_DASHBOARD_HTML)")
}

func runDashboardCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	input := dashboardInput
	if input == "" {
		input = a.cfg.Paths.InputCSV
	}
	out := dashboardOut
	if out == "" {
		out = a.cfg.Paths.DashboardHTML
	}

	result, err := a.orchestrator.Run(ctx, brain.RunConfig{InputPath: input, DryRun: true})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	if err := writeDashboard(ctx, a, result, out); err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Dashboard written to %s (%d assets)", out, len(result.Assets)))
	return nil
}
