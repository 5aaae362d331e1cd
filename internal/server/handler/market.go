package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// MarketService is what the market handler needs from the service layer.
// *service.MarketService satisfies it.
type MarketService interface {
	GetMarket(ctx context.Context, key domain.MarketKey) (domain.Market, error)
	ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	ListBySource(ctx context.Context, source string, opts domain.ListOpts) ([]domain.Market, error)
	Sources(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// MarketHandler serves normalized market snapshots.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Sources []string        `json:"sources"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns stored markets across all venues, optionally filtered
// to one source.
// GET /api/markets?source=kalshi&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		markets []domain.Market
		err     error
	)
	if source := r.URL.Query().Get("source"); source != "" {
		markets, err = h.markets.ListBySource(r.Context(), source, opts)
	} else {
		markets, err = h.markets.ListMarkets(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	sources, err := h.markets.Sources(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list sources failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}
	total, err := h.markets.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count markets")
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Sources: sources,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market with its contracts.
// GET /api/markets/{source}/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	key := domain.MarketKey{
		Source:   r.PathValue("source"),
		MarketID: r.PathValue("id"),
	}
	if key.Source == "" || key.MarketID == "" {
		writeError(w, http.StatusBadRequest, "missing market source or id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("source", key.Source),
			slog.String("market_id", key.MarketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}
