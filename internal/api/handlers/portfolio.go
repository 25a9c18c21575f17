package handlers

import (
	"net/http"
	"strconv"

	"github.com/wonny/scanner/internal/portfolio"
	"github.com/wonny/scanner/pkg/logger"
)

// PortfolioHandler builds the model portfolio of the latest run on request
type PortfolioHandler struct {
	source      ScoreSource
	config      portfolio.Config
	constraints portfolio.Constraints
	logger      *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler with default selection parameters
func NewPortfolioHandler(source ScoreSource, cfg portfolio.Config, cons portfolio.Constraints, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{source: source, config: cfg, constraints: cons, logger: log}
}

// GetPortfolio handles GET /api/portfolio?top=N&max_positions=N&min_score=X&crypto=false
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	cfg := h.config
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"top", &cfg.TopN},
		{"max_positions", &cfg.MaxPositions},
	} {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, p.name+" must be an integer")
				return
			}
			*p.dst = n
		}
	}
	if v := q.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "min_score must be a number")
			return
		}
		cfg.MinScore = f
	}
	if v := q.Get("crypto"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "crypto must be true or false")
			return
		}
		cfg.AllowCrypto = b
	}
	if err := portfolio.Validate(cfg, h.constraints); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	latest, found, err := h.source.Latest(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read latest run")
		respondError(w, http.StatusInternalServerError, "failed to read latest run")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no run yet")
		return
	}

	p := portfolio.NewConstructor(cfg, h.constraints, h.logger).Construct(latest.Summary, latest.Assets)
	respondJSON(w, http.StatusOK, p)
}
