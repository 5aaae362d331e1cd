package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// VenueClient fetches normalized markets from one venue.
type VenueClient interface {
	// Source returns the venue tag stamped on every market it produces.
	Source() string
	// Markets fetches up to limit markets; limit 0 means no cap.
	Markets(ctx context.Context, limit int) ([]domain.Market, error)
}

// MarketService syncs venue markets into storage and serves market reads.
type MarketService struct {
	venues  []VenueClient
	markets domain.MarketStore
	cache   domain.MarketCache
	bus     domain.SignalBus
	limit   int // per-venue fetch cap
	logger  *slog.Logger
}

// NewMarketService creates a MarketService. cache and bus may be nil when
// running without Redis (one-shot CLI modes).
func NewMarketService(
	venues []VenueClient,
	markets domain.MarketStore,
	cache domain.MarketCache,
	bus domain.SignalBus,
	limit int,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		venues:  venues,
		markets: markets,
		cache:   cache,
		bus:     bus,
		limit:   limit,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Total    int
	BySource map[string]int
	Failed   []string
}

// SyncAll fetches every enabled venue concurrently, persists the markets,
// and refreshes the cache. A venue failure is recorded and skipped so one
// flaky API does not starve the others; SyncAll fails only when every venue
// fails or persistence does.
func (s *MarketService) SyncAll(ctx context.Context) (SyncResult, error) {
	if len(s.venues) == 0 {
		return SyncResult{}, fmt.Errorf("market_service: no venues configured")
	}

	var (
		mu      sync.Mutex
		fetched = make(map[string][]domain.Market, len(s.venues))
		failed  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, venue := range s.venues {
		g.Go(func() error {
			markets, err := venue.Markets(gctx, s.limit)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, venue.Source())
				s.logger.WarnContext(gctx, "market_service: venue fetch failed",
					slog.String("source", venue.Source()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			fetched[venue.Source()] = markets
			return nil
		})
	}
	// Fetch goroutines only report failures through the shared slice.
	_ = g.Wait()

	if len(fetched) == 0 {
		return SyncResult{Failed: failed}, fmt.Errorf("market_service: all %d venue fetches failed", len(failed))
	}

	result := SyncResult{BySource: make(map[string]int, len(fetched)), Failed: failed}
	var all []domain.Market
	for source, markets := range fetched {
		result.BySource[source] = len(markets)
		result.Total += len(markets)
		all = append(all, markets...)
	}

	if err := s.markets.UpsertBatch(ctx, all); err != nil {
		return result, fmt.Errorf("market_service: upsert batch: %w", err)
	}

	// Refresh cache entries; non-fatal, entries expire on their own. One
	// failure aborts the backfill: a down cache fails every Set the same way.
	if s.cache != nil {
		for _, m := range all {
			if err := s.cache.Set(ctx, m); err != nil {
				s.logger.WarnContext(ctx, "market_service: cache set failed",
					slog.String("source", m.Source),
					slog.String("market_id", m.MarketID),
					slog.String("error", err.Error()),
				)
				break
			}
		}
	}

	s.publishSynced(ctx, result)

	s.logger.InfoContext(ctx, "market_service: synced markets",
		slog.Int("total", result.Total),
		slog.Int("venues", len(fetched)),
		slog.Int("failed_venues", len(failed)),
	)
	return result, nil
}

// GetMarket retrieves a market by key, checking the cache first and falling
// back to the persistent store on a cache miss.
func (s *MarketService) GetMarket(ctx context.Context, key domain.MarketKey) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, key); err == nil {
			return m, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "market_service: cache get failed",
				slog.String("source", key.Source),
				slog.String("market_id", key.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := s.markets.GetByKey(ctx, key)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %s/%s: %w", key.Source, key.MarketID, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.String("market_id", key.MarketID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return m, nil
}

// ListMarkets returns markets across all venues from the persistent store.
func (s *MarketService) ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListAll(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// ListBySource returns one venue's markets from the persistent store.
func (s *MarketService) ListBySource(ctx context.Context, source string, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListBySource(ctx, source, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list %s: %w", source, err)
	}
	return markets, nil
}

// Sources returns the distinct venue tags present in the store.
func (s *MarketService) Sources(ctx context.Context) ([]string, error) {
	sources, err := s.markets.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("market_service: sources: %w", err)
	}
	return sources, nil
}

// Count returns the total number of stored markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}

func (s *MarketService) publishSynced(ctx context.Context, result SyncResult) {
	if s.bus == nil {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event":     "markets_synced",
		"total":     result.Total,
		"by_source": result.BySource,
		"failed":    result.Failed,
		"at":        time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.bus.Publish(ctx, ChannelSync, evt); err != nil {
		s.logger.WarnContext(ctx, "market_service: publish event failed",
			slog.String("error", err.Error()),
		)
	}
}
