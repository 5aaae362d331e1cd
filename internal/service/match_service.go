package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/crossarb/internal/classifier"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
)

// MatchService runs the matcher across venues and manages persisted pairs.
type MatchService struct {
	markets domain.MarketStore
	pairs   domain.MatchedPairStore
	matcher *matching.Matcher
	model   *classifier.Classifier // optional; annotates pairs when trained
	bus     domain.SignalBus
	logger  *slog.Logger
}

// NewMatchService creates a MatchService. model and bus may be nil.
func NewMatchService(
	markets domain.MarketStore,
	pairs domain.MatchedPairStore,
	matcher *matching.Matcher,
	model *classifier.Classifier,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MatchService {
	return &MatchService{
		markets: markets,
		pairs:   pairs,
		matcher: matcher,
		model:   model,
		bus:     bus,
		logger:  logger.With(slog.String("component", "match_service")),
	}
}

// MatchRunResult summarizes one matching run.
type MatchRunResult struct {
	Sources       []string
	MarketsLoaded int
	PairsUpserted int
	// Annotated counts pairs scored by the classifier in this run.
	Annotated int
	Pairs     []domain.MatchedPair
}

// RunMatching loads every venue's markets, scores each cross-venue collection
// pair, and upserts the resulting matches. Requires markets from at least two
// venues in storage.
func (s *MatchService) RunMatching(ctx context.Context) (MatchRunResult, error) {
	sources, err := s.markets.Sources(ctx)
	if err != nil {
		return MatchRunResult{}, fmt.Errorf("match_service: sources: %w", err)
	}
	if len(sources) < 2 {
		return MatchRunResult{}, fmt.Errorf("match_service: matching requires markets from at least two venues, have %d", len(sources))
	}

	collections := make(map[string][]domain.Market, len(sources))
	loaded := 0
	for _, source := range sources {
		markets, err := s.markets.ListBySource(ctx, source, domain.ListOpts{})
		if err != nil {
			return MatchRunResult{}, fmt.Errorf("match_service: load %s markets: %w", source, err)
		}
		collections[source] = markets
		loaded += len(markets)
	}

	result := MatchRunResult{Sources: sources, MarketsLoaded: loaded}

	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			matches := s.matcher.FindMatches(collections[sources[i]], collections[sources[j]])

			for _, res := range matches {
				pair := domain.NewMatchedPair(res)

				if prob, ok := s.classifierProb(res.MarketA, res.MarketB); ok {
					pair.ClassifierProb = domain.Float64Ptr(prob)
					result.Annotated++
				}

				saved, err := s.pairs.Upsert(ctx, pair)
				if err != nil {
					return result, fmt.Errorf("match_service: upsert pair %s/%s~%s/%s: %w",
						pair.SourceA, pair.MarketIDA, pair.SourceB, pair.MarketIDB, err)
				}
				result.PairsUpserted++
				result.Pairs = append(result.Pairs, saved)
			}

			s.logger.DebugContext(ctx, "match_service: collection pair scored",
				slog.String("source_a", sources[i]),
				slog.String("source_b", sources[j]),
				slog.Int("matches", len(matches)),
			)
		}
	}

	s.publishPairsUpdated(ctx, result)

	s.logger.InfoContext(ctx, "match_service: matching complete",
		slog.Int("markets", loaded),
		slog.Int("pairs", result.PairsUpserted),
		slog.Int("annotated", result.Annotated),
	)
	return result, nil
}

// classifierProb scores a pair with the trained model; ok is false when no
// usable model is loaded.
func (s *MatchService) classifierProb(a, b domain.Market) (float64, bool) {
	if s.model == nil || !s.model.Trained() {
		return 0, false
	}
	prob, err := s.model.Predict(a, b)
	if err != nil {
		return 0, false
	}
	return prob, true
}

// MatchPair scores two stored markets directly, without persisting anything.
func (s *MatchService) MatchPair(ctx context.Context, keyA, keyB domain.MarketKey) (domain.MatchResult, error) {
	a, err := s.markets.GetByKey(ctx, keyA)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("match_service: load %s/%s: %w", keyA.Source, keyA.MarketID, err)
	}
	b, err := s.markets.GetByKey(ctx, keyB)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("match_service: load %s/%s: %w", keyB.Source, keyB.MarketID, err)
	}
	return s.matcher.MatchPair(a, b), nil
}

// ListPairs returns stored pairs matching the filter.
func (s *MatchService) ListPairs(ctx context.Context, filter domain.PairFilter) ([]domain.MatchedPair, error) {
	pairs, err := s.pairs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("match_service: list pairs: %w", err)
	}
	return pairs, nil
}

// ConfirmPair marks a pair as manually verified.
func (s *MatchService) ConfirmPair(ctx context.Context, id int64, confirmedBy string) (domain.MatchedPair, error) {
	pair, err := s.pairs.Confirm(ctx, id, confirmedBy)
	if err != nil {
		return domain.MatchedPair{}, fmt.Errorf("match_service: confirm pair %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "match_service: pair confirmed",
		slog.Int64("pair_id", id),
		slog.String("confirmed_by", confirmedBy),
	)
	return pair, nil
}

// DeletePair removes a pair.
func (s *MatchService) DeletePair(ctx context.Context, id int64) error {
	if err := s.pairs.Delete(ctx, id); err != nil {
		return fmt.Errorf("match_service: delete pair %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "match_service: pair deleted", slog.Int64("pair_id", id))
	return nil
}

// PairStats returns aggregate statistics over stored pairs.
func (s *MatchService) PairStats(ctx context.Context) (domain.PairStats, error) {
	stats, err := s.pairs.Stats(ctx)
	if err != nil {
		return domain.PairStats{}, fmt.Errorf("match_service: pair stats: %w", err)
	}
	return stats, nil
}

func (s *MatchService) publishPairsUpdated(ctx context.Context, result MatchRunResult) {
	if s.bus == nil {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event":   "pairs_updated",
		"pairs":   result.PairsUpserted,
		"sources": result.Sources,
		"at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.bus.Publish(ctx, ChannelMatches, evt); err != nil {
		s.logger.WarnContext(ctx, "match_service: publish event failed",
			slog.String("error", err.Error()),
		)
	}
}
