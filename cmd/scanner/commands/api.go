package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/scanner/internal/api"
	"github.com/wonny/scanner/internal/api/handlers"
	"github.com/wonny/scanner/internal/portfolio"
	"github.com/wonny/scanner/internal/scheduler"
	"github.com/wonny/scanner/internal/scheduler/jobs"
	"github.com/wonny/scanner/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                      - Health check (이력 저장소, Redis, 스케줄러)
  GET  /metrics                     - Prometheus 메트릭
  GET  /api/scores?top=N&label=HIGH - 최신 실행 점수
  GET  /api/scores/{id}             - 종목 점수
  GET  /api/calibration             - 최신 calibration
  GET  /api/portfolio?top=N         - 최신 실행 모델 포트폴리오
  POST /api/pipeline/run            - 파이프라인 실행
  POST /api/pipeline/backfill       - 미래 수익률 채우기
  POST /api/pipeline/calibrate      - calibration 실행
  GET  /api/scheduler/jobs          - 스케줄 작업 통계 (--scheduler)

Example:
  go run ./cmd/scanner api
  go run ./cmd/scanner api --port 8080 --scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort      string
	apiScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiScheduler, "scheduler", false, "같은 프로세스에서 스케줄러 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{publish: true})
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	var jobStats handlers.JobStatsSource
	if apiScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		jobStats = sched
	}

	h := api.Handlers{
		Scores:    handlers.NewScoresHandler(a.cache, a.log),
		Pipeline:  handlers.NewPipelineHandler(a.service, redis.NewRateLimiter(a.redis, "scanner"), a.log),
		Status:    handlers.NewStatusHandler(a.store, a.redis, jobStats, a.log),
		Portfolio: handlers.NewPortfolioHandler(a.cache, portfolio.DefaultConfig(), portfolio.DefaultConstraints(), a.log),
	}
	if a.cfg.MetricsEnabled {
		h.Metrics = a.metrics.Handler()
	}

	server := api.New(a.cfg, a.log, api.NewRouter(h, a.log))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	printSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", a.cfg.Port))
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}

// newScheduler registers the run/backfill/calibration jobs on a new scheduler
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)
	sc := a.cfg.Scheduler
	if err := jobs.Register(sched, a.service, sc.RunCron, sc.BackfillCron, sc.CalibrateCron, a.log); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}
	return sched, nil
}
