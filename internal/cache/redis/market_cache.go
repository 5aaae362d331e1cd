package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const marketTTL = 30 * time.Minute

// MarketCache implements domain.MarketCache using Redis hashes with JSON-
// serialized market snapshots. Entries expire on their own so a stalled sync
// never serves day-old quotes as fresh.
//
// Key schema:
//
//	market:{source}:{market_id} - hash with field "data" containing JSON
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketCacheKey(key domain.MarketKey) string {
	return "market:" + key.Source + ":" + key.MarketID
}

// Set stores a market snapshot with a 30-minute TTL.
func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s/%s: %w", market.Source, market.MarketID, err)
	}

	key := marketCacheKey(market.Key())

	pipe := mc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, marketTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s/%s: %w", market.Source, market.MarketID, err)
	}
	return nil
}

// Get retrieves a market snapshot by its venue key.
// It returns domain.ErrNotFound when the key does not exist.
func (mc *MarketCache) Get(ctx context.Context, key domain.MarketKey) (domain.Market, error) {
	data, err := mc.rdb.HGet(ctx, marketCacheKey(key), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s/%s: %w", key.Source, key.MarketID, err)
	}

	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s/%s: %w", key.Source, key.MarketID, err)
	}
	return market, nil
}

// Invalidate removes a market snapshot from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, key domain.MarketKey) error {
	if err := mc.rdb.Del(ctx, marketCacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s/%s: %w", key.Source, key.MarketID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
