package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/scanner/internal/calibration"
)

// calibrateCmd represents the calibrate command
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "S6 사후 검증 (점수 vs 미래 수익률)",
	Long: `점수 이력과 N 거래일 후 수익률을 비교해 상관계수, 적중률,
5분위 성과, 상위 컷오프를 계산합니다.

결과는 권고(recommendation)만 출력하며 가중치는 바꾸지 않습니다.

Flags:
  --as-of      기준일 (기본: 오늘)
  --lookback   과거 일수 (기본: scoring config)
  --horizon    수익률 기간, 거래일 (기본: scoring config)
  --top        상위 비율 0.01~0.5 (기본: scoring config)
  --json       JSON 출력

Example:
  go run ./cmd/scanner calibrate
  go run ./cmd/scanner calibrate --lookback 60 --horizon 20 --top 0.1`,
	RunE: runCalibrate,
}

var (
	calAsOf     string
	calLookback int
	calHorizon  int
	calTop      float64
	calJSON     bool
)

func init() {
	rootCmd.AddCommand(calibrateCmd)

	// Flags
	calibrateCmd.Flags().StringVar(&calAsOf, "as-of", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	calibrateCmd.Flags().IntVar(&calLookback, "lookback", 0, "과거 일수 (0 = config)")
	calibrateCmd.Flags().IntVar(&calHorizon, "horizon", 0, "수익률 기간, 거래일 (0 = config)")
	calibrateCmd.Flags().Float64Var(&calTop, "top", 0, "상위 비율 (0 = config)")
	calibrateCmd.Flags().BoolVar(&calJSON, "json", false, "JSON 출력")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	asOf, err := parseDate(calAsOf)
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

	report, err := a.service.Calibrate(ctx, calibration.Options{
		AsOf:         asOf,
		LookbackDays: calLookback,
		HorizonDays:  calHorizon,
		TopFraction:  calTop,
	})
	if err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}

	out := cmd.OutOrStdout()
	if calJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printCalibration(out, report)
	return nil
}
