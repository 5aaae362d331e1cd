package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// PairService is what the pairs handler needs from the service layer.
// *service.MatchService satisfies it.
type PairService interface {
	ListPairs(ctx context.Context, filter domain.PairFilter) ([]domain.MatchedPair, error)
	ConfirmPair(ctx context.Context, id int64, confirmedBy string) (domain.MatchedPair, error)
	DeletePair(ctx context.Context, id int64) error
	PairStats(ctx context.Context) (domain.PairStats, error)
}

// PairHandler serves matched-pair review endpoints.
type PairHandler struct {
	pairs  PairService
	logger *slog.Logger
}

// NewPairHandler creates a PairHandler.
func NewPairHandler(pairs PairService, logger *slog.Logger) *PairHandler {
	return &PairHandler{pairs: pairs, logger: logger}
}

// listPairsResponse wraps the list endpoint output.
type listPairsResponse struct {
	Pairs []domain.MatchedPair `json:"pairs"`
	Count int                  `json:"count"`
}

// ListPairs returns stored pairs ordered by similarity descending.
// GET /api/pairs?min_similarity=0.7&source=kalshi&confirmed_only=true&limit=50
func (h *PairHandler) ListPairs(w http.ResponseWriter, r *http.Request) {
	filter := domain.PairFilter{
		MinSimilarity: queryFloat(r, "min_similarity", 0),
		Source:        r.URL.Query().Get("source"),
		ConfirmedOnly: r.URL.Query().Get("confirmed_only") == "true",
		Limit:         queryInt(r, "limit", 100, 500),
		Offset:        queryInt(r, "offset", 0, 0),
	}

	pairs, err := h.pairs.ListPairs(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pairs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list pairs")
		return
	}

	writeJSON(w, http.StatusOK, listPairsResponse{Pairs: pairs, Count: len(pairs)})
}

// confirmRequest is the body of the confirm endpoint.
type confirmRequest struct {
	ConfirmedBy string `json:"confirmed_by"`
}

// ConfirmPair marks a pair as manually verified.
// POST /api/pairs/{id}/confirm
func (h *PairHandler) ConfirmPair(w http.ResponseWriter, r *http.Request) {
	id, ok := pairID(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConfirmedBy == "" {
		writeError(w, http.StatusBadRequest, "confirmed_by is required")
		return
	}

	pair, err := h.pairs.ConfirmPair(r.Context(), id, req.ConfirmedBy)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pair not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: confirm pair failed",
			slog.Int64("pair_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to confirm pair")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// DeletePair removes a pair.
// DELETE /api/pairs/{id}
func (h *PairHandler) DeletePair(w http.ResponseWriter, r *http.Request) {
	id, ok := pairID(w, r)
	if !ok {
		return
	}

	if err := h.pairs.DeletePair(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pair not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: delete pair failed",
			slog.Int64("pair_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete pair")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pairID parses the {id} path segment, writing a 400 on failure.
func pairID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid pair id")
		return 0, false
	}
	return id, true
}
