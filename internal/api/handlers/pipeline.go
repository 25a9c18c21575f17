package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/calibration"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/pkg/logger"
	"github.com/wonny/scanner/pkg/redis"
)

// Runner is the pipeline surface behind the trigger endpoints (brain.Service)
type Runner interface {
	RunPipeline(ctx context.Context) (*brain.RunResult, error)
	Backfill(ctx context.Context) (int, error)
	Calibrate(ctx context.Context, opts calibration.Options) (*contracts.CalibrationReport, error)
}

// Limiter admits manual triggers (redis.RateLimiter)
type Limiter interface {
	Allow(ctx context.Context, cfg redis.RateLimitConfig) (bool, int, error)
}

// Trigger actions
const (
	ActionRun       = "run"
	ActionBackfill  = "backfill"
	ActionCalibrate = "calibrate"
)

// PipelineHandler handles manual pipeline triggers
// ⭐ SSOT: 수동 실행 API는 여기서만
type PipelineHandler struct {
	runner  Runner
	limiter Limiter
	logger  *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(runner Runner, limiter Limiter, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{runner: runner, limiter: limiter, logger: log}
}

// Trigger handles POST /api/pipeline/{action}
func (h *PipelineHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	switch action {
	case ActionRun, ActionBackfill, ActionCalibrate:
	default:
		respondError(w, http.StatusNotFound, "unknown action: "+action)
		return
	}

	limit := redis.TriggerRateLimit
	limit.Key = "trigger:" + action
	allowed, remaining, err := h.limiter.Allow(r.Context(), limit)
	if err != nil {
		// Redis 장애 시 수동 실행은 막지 않음
		h.logger.WithError(err).Warn("Rate limiter unavailable, admitting trigger")
	} else {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			respondError(w, http.StatusTooManyRequests, "too many "+action+" triggers, retry later")
			return
		}
	}

	// 클라이언트가 끊겨도 실행은 끝까지 진행
	ctx := context.WithoutCancel(r.Context())
	log := h.logger.WithField("action", action)
	log.Info("Manual trigger")

	var body interface{}
	switch action {
	case ActionRun:
		var result *brain.RunResult
		result, err = h.runner.RunPipeline(ctx)
		if result != nil {
			body = result.Summary
		}
	case ActionBackfill:
		var filled int
		filled, err = h.runner.Backfill(ctx)
		body = map[string]int{"filled": filled}
	case ActionCalibrate:
		body, err = h.runner.Calibrate(ctx, calibration.Options{})
	}

	if err != nil {
		if errors.Is(err, brain.ErrBusy) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		log.WithError(err).Error("Manual trigger failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, body)
}
