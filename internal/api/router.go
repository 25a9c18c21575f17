package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/scanner/internal/api/handlers"
	"github.com/wonny/scanner/pkg/logger"
)

// Handlers bundles the endpoint handlers
type Handlers struct {
	Scores    *handlers.ScoresHandler
	Pipeline  *handlers.PipelineHandler
	Status    *handlers.StatusHandler
	Portfolio *handlers.PortfolioHandler // nil = /api/portfolio not served
	Metrics   http.Handler               // nil = /metrics not served
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", h.Status.Health).Methods("GET")
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()

	// Score endpoints
	api.HandleFunc("/scores", h.Scores.GetScores).Methods("GET")
	api.HandleFunc("/scores/{id}", h.Scores.GetAsset).Methods("GET")
	api.HandleFunc("/calibration", h.Scores.GetCalibration).Methods("GET")
	if h.Portfolio != nil {
		api.HandleFunc("/portfolio", h.Portfolio.GetPortfolio).Methods("GET")
	}

	// Manual triggers
	api.HandleFunc("/pipeline/{action}", h.Pipeline.Trigger).Methods("POST")

	// Scheduler
	api.HandleFunc("/scheduler/jobs", h.Status.GetJobs).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(notFound)

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "not found: " + r.URL.Path,
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
