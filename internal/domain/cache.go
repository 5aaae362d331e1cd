package domain

import (
	"context"
	"time"
)

// MarketCache provides fast market snapshot lookups in front of the store.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, key MarketKey) (Market, error)
	Invalidate(ctx context.Context, key MarketKey) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	// Allow reports whether a request for key is permitted under the sliding
	// window limit, counting the request when it is.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	// Acquire obtains the lock for key or returns ErrLockHeld. The returned
	// function releases the lock and is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub messaging between services and the dashboard.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of raw payloads. The subscription closes
	// when the context is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
