package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scheduler"
	"github.com/wonny/scanner/pkg/logger"
)

// Pinger reports dependency liveness (redis.Client)
type Pinger interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

// JobStatsSource exposes scheduler statistics (scheduler.Scheduler)
type JobStatsSource interface {
	GetJobStats() map[string]scheduler.JobStats
}

// StatusHandler handles health and scheduler status
type StatusHandler struct {
	store  contracts.SnapshotStore
	cache  Pinger
	jobs   JobStatsSource // nil when the scheduler is not running in-process
	logger *logger.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(store contracts.SnapshotStore, cache Pinger, jobs JobStatsSource, log *logger.Logger) *StatusHandler {
	return &StatusHandler{store: store, cache: cache, jobs: jobs, logger: log}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string                        `json:"status"`
	Service   string                        `json:"service"`
	Timestamp time.Time                     `json:"timestamp"`
	Store     *contracts.StoreStats         `json:"store,omitempty"`
	Redis     string                        `json:"redis"`
	Jobs      map[string]scheduler.JobStats `json:"jobs,omitempty"`
	Errors    []string                      `json:"errors,omitempty"`
}

// Health handles GET /health
// 스냅샷 저장소 실패만 degraded(503), Redis는 선택 의존성
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Service:   "scanner-api",
		Timestamp: time.Now().UTC(),
		Redis:     "disabled",
	}
	status := http.StatusOK

	stats, err := h.store.Stats(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Snapshot store health check failed")
		resp.Status = "degraded"
		resp.Errors = append(resp.Errors, "store: "+err.Error())
		status = http.StatusServiceUnavailable
	} else {
		resp.Store = &stats
	}

	if h.cache != nil && h.cache.Enabled() {
		if err := h.cache.Ping(ctx); err != nil {
			resp.Redis = "unreachable"
			resp.Errors = append(resp.Errors, "redis: "+err.Error())
		} else {
			resp.Redis = "ok"
		}
	}

	if h.jobs != nil {
		resp.Jobs = h.jobs.GetJobStats()
	}

	respondJSON(w, status, resp)
}

// GetJobs handles GET /api/scheduler/jobs
func (h *StatusHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondError(w, http.StatusNotFound, "scheduler not running in this process")
		return
	}
	respondJSON(w, http.StatusOK, h.jobs.GetJobStats())
}
