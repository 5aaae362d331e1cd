package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/classifier"
	"github.com/alanyoungcy/crossarb/internal/domain"
)

func trainingFixtures() (*memMarketStore, *memPairStore) {
	markets := newMemMarketStore(
		domain.Market{Source: "kalshi", MarketID: "k1", Name: "Bitcoin above 100k by year end", Category: "Crypto", EventTime: "2025-12-31T00:00:00Z"},
		domain.Market{Source: "kalshi", MarketID: "k2", Name: "Fed cuts rates in March", Category: "Economics", EventTime: "2025-03-20T00:00:00Z"},
		domain.Market{Source: "kalshi", MarketID: "k3", Name: "Lakers win the championship", Category: "Sports"},
		domain.Market{Source: "polymarket", MarketID: "p1", Name: "Bitcoin to exceed 100k before 2026", Category: "Crypto", EventTime: "2025-12-31T00:00:00Z"},
		domain.Market{Source: "polymarket", MarketID: "p2", Name: "Will the Fed cut in March", Category: "Economics", EventTime: "2025-03-20T00:00:00Z"},
		domain.Market{Source: "polymarket", MarketID: "p3", Name: "Celtics win the NBA finals", Category: "Sports"},
	)

	pairs := &memPairStore{}
	ctx := context.Background()
	p1, _ := pairs.Upsert(ctx, domain.MatchedPair{SourceA: "kalshi", MarketIDA: "k1", SourceB: "polymarket", MarketIDB: "p1", SimilarityScore: 0.9})
	p2, _ := pairs.Upsert(ctx, domain.MatchedPair{SourceA: "kalshi", MarketIDA: "k2", SourceB: "polymarket", MarketIDB: "p2", SimilarityScore: 0.85})
	pairs.Confirm(ctx, p1.ID, "tester")
	pairs.Confirm(ctx, p2.ID, "tester")
	return markets, pairs
}

func TestTrainingService_Run(t *testing.T) {
	markets, pairs := trainingFixtures()
	model := classifier.New(slog.Default())

	svc := NewTrainingService(markets, pairs, model, nil, nil, TrainingConfig{
		ModelPath:     t.TempDir() + "/model.json",
		NegativeRatio: 2,
		Seed:          42,
	}, slog.Default())

	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Positives)
	assert.Greater(t, result.Negatives, 0)
	assert.LessOrEqual(t, result.Negatives, 4)
	assert.True(t, model.Trained())

	// Importance always normalizes to 1.
	sum := 0.0
	for _, v := range result.Importance {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 0.01)
}

func TestTrainingService_NegativeSamplingIsDeterministic(t *testing.T) {
	run := func() []string {
		markets, pairs := trainingFixtures()
		svc := NewTrainingService(markets, pairs, classifier.New(slog.Default()), nil, nil, TrainingConfig{
			ModelPath:     t.TempDir() + "/model.json",
			NegativeRatio: 2,
			Seed:          42,
		}, slog.Default())

		negatives, err := svc.sampleNegatives(context.Background(), map[[2]domain.MarketKey]bool{}, 4)
		require.NoError(t, err)

		keys := make([]string, len(negatives))
		for i, p := range negatives {
			keys[i] = p.A.Source + "/" + p.A.MarketID + "~" + p.B.Source + "/" + p.B.MarketID
		}
		return keys
	}

	assert.Equal(t, run(), run())
}

func TestTrainingService_NegativesExcludeMatchedAndSameSource(t *testing.T) {
	markets, pairs := trainingFixtures()
	svc := NewTrainingService(markets, pairs, classifier.New(slog.Default()), nil, nil, TrainingConfig{
		ModelPath:     t.TempDir() + "/model.json",
		NegativeRatio: 1,
		Seed:          7,
	}, slog.Default())

	matched := map[[2]domain.MarketKey]bool{
		{{Source: "kalshi", MarketID: "k1"}, {Source: "polymarket", MarketID: "p1"}}: true,
	}
	negatives, err := svc.sampleNegatives(context.Background(), matched, 8)
	require.NoError(t, err)
	require.NotEmpty(t, negatives)

	for _, p := range negatives {
		assert.NotEqual(t, p.A.Source, p.B.Source)
		key := [2]domain.MarketKey{p.A.Key(), p.B.Key()}
		if key[1].Less(key[0]) {
			key[0], key[1] = key[1], key[0]
		}
		assert.False(t, matched[key], "sampled a matched pair as negative")
	}
}

func TestTrainingService_FailsWithoutConfirmedPairs(t *testing.T) {
	markets, _ := trainingFixtures()
	svc := NewTrainingService(markets, &memPairStore{}, classifier.New(slog.Default()), nil, nil, TrainingConfig{
		ModelPath: t.TempDir() + "/model.json",
	}, slog.Default())

	_, err := svc.Run(context.Background())
	assert.ErrorContains(t, err, "no confirmed pairs")
}
