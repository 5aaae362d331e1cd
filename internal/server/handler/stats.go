package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// StatsCounter reports opportunity history counts. *service.ScanService
// satisfies it.
type StatsCounter interface {
	CountOpportunitiesSince(ctx context.Context, since time.Time) (int64, error)
}

// StatsHandler serves the aggregate dashboard statistics endpoint.
type StatsHandler struct {
	pairs   PairService
	markets MarketService
	scans   StatsCounter
	logger  *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(pairs PairService, markets MarketService, scans StatsCounter, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{pairs: pairs, markets: markets, scans: scans, logger: logger}
}

// statsResponse is the aggregate dashboard snapshot.
type statsResponse struct {
	Markets          int64            `json:"markets"`
	Sources          []string         `json:"sources"`
	Pairs            domain.PairStats `json:"pairs"`
	Opportunities24h int64            `json:"opportunities_24h"`
}

// GetStats returns matched-pair statistics plus market and opportunity counts.
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	markets, err := h.markets.Count(ctx)
	if err != nil {
		h.fail(w, r, "count markets", err)
		return
	}
	sources, err := h.markets.Sources(ctx)
	if err != nil {
		h.fail(w, r, "list sources", err)
		return
	}
	pairStats, err := h.pairs.PairStats(ctx)
	if err != nil {
		h.fail(w, r, "pair stats", err)
		return
	}
	recent, err := h.scans.CountOpportunitiesSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		h.fail(w, r, "count opportunities", err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Markets:          markets,
		Sources:          sources,
		Pairs:            pairStats,
		Opportunities24h: recent,
	})
}

func (h *StatsHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), "handler: stats failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to compute stats")
}
