package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/s3_scoring"
	"github.com/wonny/scanner/internal/scorecache"
	"github.com/wonny/scanner/pkg/logger"
)

// ScoreSource serves cached run results (scorecache.Store)
type ScoreSource interface {
	Latest(ctx context.Context) (*scorecache.LatestRun, bool, error)
	Asset(ctx context.Context, identifier string) (*contracts.ScoredAsset, bool, error)
	Calibration(ctx context.Context) (*contracts.CalibrationReport, bool, error)
}

// ScoresHandler handles score read endpoints
type ScoresHandler struct {
	source ScoreSource
	logger *logger.Logger
}

// NewScoresHandler creates a new scores handler
func NewScoresHandler(source ScoreSource, log *logger.Logger) *ScoresHandler {
	return &ScoresHandler{source: source, logger: log}
}

// ScoresResponse is the body of GET /api/scores
type ScoresResponse struct {
	Summary contracts.RunSummary    `json:"summary"`
	Count   int                     `json:"count"`
	Assets  []contracts.ScoredAsset `json:"assets"`
}

// GetScores handles GET /api/scores?top=N&label=HIGH
func (h *ScoresHandler) GetScores(w http.ResponseWriter, r *http.Request) {
	top := 0
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "top must be a non-negative integer")
			return
		}
		top = n
	}

	var label contracts.ConfidenceLabel
	if v := r.URL.Query().Get("label"); v != "" {
		label = contracts.ConfidenceLabel(strings.ToUpper(v))
		switch label {
		case contracts.ConfidenceLow, contracts.ConfidenceMed, contracts.ConfidenceHigh:
		default:
			respondError(w, http.StatusBadRequest, "label must be LOW, MED or HIGH")
			return
		}
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

	assets := make([]contracts.ScoredAsset, 0, len(latest.Assets))
	for _, a := range latest.Assets {
		if label != "" && a.Result.ConfidenceLabel != label {
			continue
		}
		assets = append(assets, a)
	}
	if top == 0 {
		top = len(assets)
	}
	assets = s3_scoring.TopN(assets, top)

	respondJSON(w, http.StatusOK, ScoresResponse{
		Summary: latest.Summary,
		Count:   len(assets),
		Assets:  assets,
	})
}

// GetAsset handles GET /api/scores/{id}
func (h *ScoresHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	asset, found, err := h.source.Asset(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("identifier", id).Error("Failed to read asset")
		respondError(w, http.StatusInternalServerError, "failed to read asset")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "asset not found: "+id)
		return
	}

	respondJSON(w, http.StatusOK, asset)
}

// GetCalibration handles GET /api/calibration
func (h *ScoresHandler) GetCalibration(w http.ResponseWriter, r *http.Request) {
	report, found, err := h.source.Calibration(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read calibration")
		respondError(w, http.StatusInternalServerError, "failed to read calibration")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no calibration yet")
		return
	}

	respondJSON(w, http.StatusOK, report)
}
