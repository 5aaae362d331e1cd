package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// OpportunityService is what the opportunity handler needs from the service
// layer. *service.ScanService satisfies it.
type OpportunityService interface {
	// Evaluate runs a live detection pass; minSimilarity 0 uses the
	// configured floor.
	Evaluate(ctx context.Context, minSimilarity float64) ([]domain.ArbitrageOpportunity, error)
	RecentOpportunities(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error)
}

// OpportunityHandler serves arbitrage opportunity endpoints.
type OpportunityHandler struct {
	scans  OpportunityService
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(scans OpportunityService, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{scans: scans, logger: logger}
}

// opportunitiesResponse wraps opportunity list output.
type opportunitiesResponse struct {
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
	Count         int                           `json:"count"`
}

// ListLive evaluates stored pairs against current market snapshots and
// returns the opportunities found, best profit first.
// GET /api/opportunities?min_similarity=0.7
func (h *OpportunityHandler) ListLive(w http.ResponseWriter, r *http.Request) {
	opps, err := h.scans.Evaluate(r.Context(), queryFloat(r, "min_similarity", 0))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: evaluate opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to evaluate opportunities")
		return
	}

	writeJSON(w, http.StatusOK, opportunitiesResponse{Opportunities: opps, Count: len(opps)})
}

// ListRecent returns persisted scan history, newest first.
// GET /api/opportunities/recent?limit=50
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opps, err := h.scans.RecentOpportunities(r.Context(), queryInt(r, "limit", 50, 500))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list recent opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	writeJSON(w, http.StatusOK, opportunitiesResponse{Opportunities: opps, Count: len(opps)})
}
