package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PairFilter narrows matched-pair queries.
type PairFilter struct {
	// MinSimilarity drops pairs scoring below this value; zero keeps all.
	MinSimilarity float64
	// Source keeps only pairs where either side belongs to this venue.
	Source string
	// ConfirmedOnly keeps only manually confirmed pairs.
	ConfirmedOnly bool
	Limit         int
	Offset        int
}

// MarketStore persists normalized markets and their contracts.
type MarketStore interface {
	// Upsert writes a market and replaces its contract rows.
	Upsert(ctx context.Context, market Market) error
	UpsertBatch(ctx context.Context, markets []Market) error
	GetByKey(ctx context.Context, key MarketKey) (Market, error)
	ListBySource(ctx context.Context, source string, opts ListOpts) ([]Market, error)
	ListAll(ctx context.Context, opts ListOpts) ([]Market, error)
	// Sources returns the distinct venue tags present in the store.
	Sources(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// MatchedPairStore persists cross-venue market links. Implementations must
// canonicalize pair order so that saving (A,B) and (B,A) hit the same row,
// and upserts must update score fields and updated_at instead of inserting
// duplicates.
type MatchedPairStore interface {
	Upsert(ctx context.Context, pair MatchedPair) (MatchedPair, error)
	GetByID(ctx context.Context, id int64) (MatchedPair, error)
	// List returns pairs matching the filter ordered by similarity descending.
	List(ctx context.Context, filter PairFilter) ([]MatchedPair, error)
	Confirm(ctx context.Context, id int64, confirmedBy string) (MatchedPair, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (PairStats, error)
}

// OpportunityStore persists detected arbitrage opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp ArbitrageOpportunity) error
	InsertBatch(ctx context.Context, opps []ArbitrageOpportunity) error
	ListRecent(ctx context.Context, limit int) ([]ArbitrageOpportunity, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
