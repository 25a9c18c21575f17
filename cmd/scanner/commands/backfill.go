package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "미래 수익률 채우기",
	Long: `점수 이력에서 forward_return 이 비어 있거나 다른 기간으로 계산된 행을 채웁니다.

수익률 = 같은 종목의 N 거래일 뒤 종가 / 당일 종가 - 1
거래일 = 이력에 존재하는 날짜
N = scoring config 의 calibration.horizon_days (calibrate 기본값과 동일)

Example:
  go run ./cmd/scanner backfill`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.service.Backfill(cmd.Context())
	if err != nil {
		return err
	}

	stats, err := a.store.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("store stats: %w", err)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, fmt.Sprintf("Filled %d forward returns (horizon %d)", n, a.service.Horizon()))
	printKeyValue(out, "Rows", stats.Rows)
	printKeyValue(out, "With return", stats.WithForwardReturn)
	return nil
}
