package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/calibration"
	"github.com/wonny/scanner/internal/report"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "일일 스코어링 실행 (S0→S5)",
	Long: `워치리스트 CSV를 스코어링하고 결과 CSV와 점수 이력을 기록합니다.

S0: Load (CSV → 레코드, 거부 행 기록)
S1: Winsorize (분위수 클리핑)
S2: Normalize (팩터별 0~100)
S3: Compose (기회/리스크/레짐 블렌드 → 0~200)
S4: Confidence (결측/신호 불일치 → HIGH/MED/LOW)
S5: Snapshot (이력 저장, 같은 날짜 재실행은 건너뜀)

Flags:
  --date       실행 날짜 (기본: 오늘)
  --input      입력 CSV (기본: SCANNER_INPUT_CSV)
  --output     결과 CSV (기본: SCANNER_OUTPUT_CSV)
  --dry-run    이력 저장 없이 실행
  --dashboard  실행 후 HTML 대시보드 생성

Example:
  go run ./cmd/scanner run
  go run ./cmd/scanner run --date 2026-03-02 --dry-run
  go run ./cmd/scanner run --input data/watchlist.csv --dashboard`,
	RunE: runScan,
}

var (
	runDate      string
	runInput     string
	runOutput    string
	runDryRun    bool
	runDashboard bool
	runTop       int
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().StringVar(&runDate, "date", "", "실행 날짜 (YYYY-MM-DD, 기본: 오늘)")
	runCmd.Flags().StringVar(&runInput, "input", "", "입력 CSV 경로")
	runCmd.Flags().StringVar(&runOutput, "output", "", "결과 CSV 경로")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "스냅샷 저장 없이 실행")
	runCmd.Flags().BoolVar(&runDashboard, "dashboard", false, "HTML 대시보드 생성 (SCANNER_DASHBOARD_HTML)")
	runCmd.Flags().IntVar(&runTop, "top", 10, "출력할 상위 종목 수 (0 = 전체)")
}

func runScan(cmd *cobra.Command, args []string) error {
	date, err := parseDate(runDate)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{publish: true})
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.service.Run(ctx, brain.RunConfig{
		Date:       date,
		InputPath:  runInput,
		OutputPath: runOutput,
		DryRun:     runDryRun,
	})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	out := cmd.OutOrStdout()
	printRunSummary(out, &result.Summary, result.Assets, runTop)

	if runDashboard {
		if err := writeDashboard(ctx, a, result, a.cfg.Paths.DashboardHTML); err != nil {
			return err
		}
		printSuccess(out, "Dashboard written to "+a.cfg.Paths.DashboardHTML)
	}

	output := runOutput
	if output == "" {
		output = a.cfg.Paths.OutputCSV
	}
	printSuccess(out, "Scored CSV written to "+output)
	return nil
}

// writeDashboard renders the run plus a fresh calibration to path
func writeDashboard(ctx context.Context, a *app, result *brain.RunResult, path string) error {
	cal, err := a.service.Calibrate(ctx, calibration.Options{})
	if err != nil {
		a.log.WithError(err).Warn("Calibration unavailable for dashboard")
		cal = nil
	}

	return report.WriteDashboardFile(path, report.DashboardData{
		Summary:     result.Summary,
		Assets:      result.Assets,
		Calibration: cal,
	})
}
