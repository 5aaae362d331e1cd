package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
)

func testContracts(source, marketID string) []domain.Contract {
	return []domain.Contract{
		{Source: source, MarketID: marketID, ContractID: marketID + "_yes", Name: "Yes", Side: "YES", OutcomeType: domain.OutcomeBinary},
		{Source: source, MarketID: marketID, ContractID: marketID + "_no", Name: "No", Side: "NO", OutcomeType: domain.OutcomeBinary},
	}
}

func newTestMatchService(t *testing.T, markets *memMarketStore, pairs *memPairStore) *MatchService {
	t.Helper()
	cfg := matching.DefaultConfig()
	m, err := matching.New(cfg, slog.Default())
	require.NoError(t, err)
	return NewMatchService(markets, pairs, m, nil, nil, slog.Default())
}

func TestMatchService_RunMatching_UpsertsCrossVenuePairs(t *testing.T) {
	markets := newMemMarketStore(
		domain.Market{
			Source: "kalshi", MarketID: "BTC-100K", Name: "Will Bitcoin close above $100,000 on Dec 31, 2025?",
			Category: "Crypto", EventTime: "2025-12-31T23:59:00Z", Contracts: testContracts("kalshi", "BTC-100K"),
		},
		domain.Market{
			Source: "polymarket", MarketID: "btc-100k-2025", Name: "Bitcoin to exceed $100k USD before end of 2025?",
			Category: "Crypto", EventTime: "2025-12-31T12:00:00Z", Contracts: testContracts("polymarket", "btc-100k-2025"),
		},
		domain.Market{
			Source: "polymarket", MarketID: "superbowl", Name: "Chiefs to win the Super Bowl?",
			Category: "Sports", EventTime: "2026-02-08T00:00:00Z", Contracts: testContracts("polymarket", "superbowl"),
		},
	)
	pairs := &memPairStore{}
	svc := newTestMatchService(t, markets, pairs)

	result, err := svc.RunMatching(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, result.PairsUpserted)
	saved := result.Pairs[0]
	assert.Greater(t, saved.SimilarityScore, 0.5)
	assert.NotEqual(t, saved.SourceA, saved.SourceB)

	// Re-running updates the existing row instead of duplicating it.
	again, err := svc.RunMatching(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, again.PairsUpserted)
	assert.Equal(t, saved.ID, again.Pairs[0].ID)
	assert.Len(t, pairs.pairs, 1)
}

func TestMatchService_RunMatching_RequiresTwoVenues(t *testing.T) {
	markets := newMemMarketStore(
		domain.Market{Source: "kalshi", MarketID: "k1", Name: "Solo market"},
	)
	svc := newTestMatchService(t, markets, &memPairStore{})

	_, err := svc.RunMatching(context.Background())
	assert.ErrorContains(t, err, "at least two venues")
}

func TestMatchService_ConfirmAndDeletePair(t *testing.T) {
	pairs := &memPairStore{}
	saved, err := pairs.Upsert(context.Background(), domain.MatchedPair{
		SourceA: "kalshi", MarketIDA: "k1", SourceB: "polymarket", MarketIDB: "p1", SimilarityScore: 0.8,
	})
	require.NoError(t, err)

	svc := newTestMatchService(t, newMemMarketStore(), pairs)

	confirmed, err := svc.ConfirmPair(context.Background(), saved.ID, "alice")
	require.NoError(t, err)
	assert.True(t, confirmed.IsManualConfirmed)
	assert.Equal(t, "alice", confirmed.ConfirmedBy)
	require.NotNil(t, confirmed.ConfirmedAt)

	require.NoError(t, svc.DeletePair(context.Background(), saved.ID))
	err = svc.DeletePair(context.Background(), saved.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
