package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/export"
	"github.com/wonny/scanner/internal/portfolio"
)

// portfolioCmd represents the portfolio command
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "점수 기반 모델 포트폴리오",
	Long: `입력 CSV를 저장 없이 스코어링하고 모델 포트폴리오를 구성합니다.

- 최소 점수 필터 (bear 국면 종목은 50 초과)
- 점수 비중 × (1 − 유동성 리스크)
- 종목당 1% ~ 15%, 남는 비중은 현금
- 국면별 자산군 노출 한도 (주식 100/70/40%, 크립토 15/10/5%)

매매는 하지 않습니다.

Example:
  go run ./cmd/scanner portfolio
  go run ./cmd/scanner portfolio --top 15 --min-score 40 --no-crypto --out data/portfolio.csv`,
	RunE: runPortfolio,
}

var (
	portfolioInput        string
	portfolioDate         string
	portfolioTop          int
	portfolioMaxPositions int
	portfolioMinScore     float64
	portfolioNoCrypto     bool
	portfolioExclude      []string
	portfolioOut          string
	portfolioJSON         bool
)

func init() {
	rootCmd.AddCommand(portfolioCmd)

	defaults := portfolio.DefaultConfig()

	// Flags
	portfolioCmd.Flags().StringVar(&portfolioInput, "input", "", "입력 CSV 경로 (기본: SCANNER_INPUT_CSV)")
	portfolioCmd.Flags().StringVar(&portfolioDate, "date", "", "실행 날짜 (YYYY-MM-DD, 기본: 오늘)")
	portfolioCmd.Flags().IntVar(&portfolioTop, "top", defaults.TopN, "점수 상위 N")
	portfolioCmd.Flags().IntVar(&portfolioMaxPositions, "max-positions", defaults.MaxPositions, "최대 종목 수")
	portfolioCmd.Flags().Float64Var(&portfolioMinScore, "min-score", defaults.MinScore, "최소 점수")
	portfolioCmd.Flags().BoolVar(&portfolioNoCrypto, "no-crypto", false, "크립토 제외")
	portfolioCmd.Flags().StringSliceVar(&portfolioExclude, "exclude", nil, "제외 식별자/티커 (쉼표 구분)")
	portfolioCmd.Flags().StringVar(&portfolioOut, "out", "", "포지션 CSV 경로 (+ _meta.json)")
	portfolioCmd.Flags().BoolVar(&portfolioJSON, "json", false, "JSON 출력")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	date, err := parseDate(portfolioDate)
	if err != nil {
		return err
	}

	cfg := portfolio.DefaultConfig()
	cfg.TopN = portfolioTop
	cfg.MaxPositions = portfolioMaxPositions
	cfg.MinScore = portfolioMinScore
	cfg.AllowCrypto = !portfolioNoCrypto

	cons := portfolio.DefaultConstraints()
	cons.Exclude = append(cons.Exclude, portfolioExclude...)

	if err := portfolio.Validate(cfg, cons); err != nil {
		return fmt.Errorf("portfolio: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	input := portfolioInput
	if input == "" {
		input = a.cfg.Paths.InputCSV
	}

	// dry-run: 스냅샷/결과 CSV 없음
	result, err := a.orchestrator.Run(ctx, brain.RunConfig{Date: date, InputPath: input, DryRun: true})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	p := portfolio.NewConstructor(cfg, cons, a.log).Construct(result.Summary, result.Assets)

	if portfolioOut != "" {
		if err := export.WritePortfolio(portfolioOut, p); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if portfolioJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	printPortfolio(out, p)
	if portfolioOut != "" {
		printSuccess(out, "Portfolio written to "+portfolioOut)
	}
	return nil
}

// printPortfolio prints positions and the exposure summary
func printPortfolio(w io.Writer, p *contracts.Portfolio) {
	printHeader(w, "Portfolio "+p.RunDate.Format(contracts.DateLayout))
	printKeyValue(w, "Run ID", p.RunID)
	printKeyValue(w, "Candidates", p.Candidates)
	printKeyValue(w, "Positions", len(p.Positions))
	printKeyValue(w, "Equity", fmt.Sprintf("%.1f%% (%s, max %.0f%%)",
		p.ClassWeight(contracts.AssetStock)*100, p.EquityRegime, p.MaxEquityExposure*100))
	if p.CryptoRegime != "" {
		printKeyValue(w, "Crypto", fmt.Sprintf("%.1f%% (%s, max %.0f%%)",
			p.ClassWeight(contracts.AssetCrypto)*100, p.CryptoRegime, p.MaxCryptoExposure*100))
	}
	printKeyValue(w, "Cash", fmt.Sprintf("%.1f%%", p.Cash*100))
	fmt.Fprintln(w, singleLine)

	if len(p.Positions) == 0 {
		printWarning(w, "No assets passed the portfolio filters")
		return
	}

	rows := make([][]string, 0, len(p.Positions))
	for i, pos := range p.Positions {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			pos.Identifier,
			pos.Ticker,
			fmt.Sprintf("%.2f", pos.Score),
			fmt.Sprintf("%.2f%%", pos.Weight*100),
			fmt.Sprintf("%.1f", pos.LiquidityRisk),
			string(pos.Regime),
		})
	}
	printTable(w, []string{"#", "Identifier", "Ticker", "Score", "Weight", "Liq", "Regime"}, []int{3, 14, 8, 7, 7, 4, 8}, rows)
}
