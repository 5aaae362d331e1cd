package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// memMarketStore is an in-memory domain.MarketStore for service tests.
type memMarketStore struct {
	markets map[domain.MarketKey]domain.Market
}

func newMemMarketStore(markets ...domain.Market) *memMarketStore {
	s := &memMarketStore{markets: make(map[domain.MarketKey]domain.Market)}
	for _, m := range markets {
		s.markets[m.Key()] = m
	}
	return s
}

func (s *memMarketStore) Upsert(_ context.Context, m domain.Market) error {
	s.markets[m.Key()] = m
	return nil
}

func (s *memMarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	for _, m := range markets {
		if err := s.Upsert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *memMarketStore) GetByKey(_ context.Context, key domain.MarketKey) (domain.Market, error) {
	m, ok := s.markets[key]
	if !ok {
		return domain.Market{}, fmt.Errorf("get %s/%s: %w", key.Source, key.MarketID, domain.ErrNotFound)
	}
	return m, nil
}

func (s *memMarketStore) ListBySource(_ context.Context, source string, _ domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		if m.Source == source {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out, nil
}

func (s *memMarketStore) ListAll(_ context.Context, _ domain.ListOpts) ([]domain.Market, error) {
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().Less(out[j].Key())
	})
	return out, nil
}

func (s *memMarketStore) Sources(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, m := range s.markets {
		if !seen[m.Source] {
			seen[m.Source] = true
			out = append(out, m.Source)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memMarketStore) Count(_ context.Context) (int64, error) {
	return int64(len(s.markets)), nil
}

// memPairStore is an in-memory domain.MatchedPairStore with the same
// canonical-upsert semantics as the postgres implementation.
type memPairStore struct {
	pairs  []domain.MatchedPair
	nextID int64
}

func (s *memPairStore) Upsert(_ context.Context, pair domain.MatchedPair) (domain.MatchedPair, error) {
	pair.Canonicalize()
	for i, p := range s.pairs {
		if p.KeyA() == pair.KeyA() && p.KeyB() == pair.KeyB() {
			p.SimilarityScore = pair.SimilarityScore
			p.ClassifierProb = pair.ClassifierProb
			p.UpdatedAt = time.Now().UTC()
			s.pairs[i] = p
			return p, nil
		}
	}
	s.nextID++
	pair.ID = s.nextID
	now := time.Now().UTC()
	pair.CreatedAt = now
	pair.UpdatedAt = now
	s.pairs = append(s.pairs, pair)
	return pair, nil
}

func (s *memPairStore) GetByID(_ context.Context, id int64) (domain.MatchedPair, error) {
	for _, p := range s.pairs {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.MatchedPair{}, domain.ErrNotFound
}

func (s *memPairStore) List(_ context.Context, filter domain.PairFilter) ([]domain.MatchedPair, error) {
	var out []domain.MatchedPair
	for _, p := range s.pairs {
		if filter.ConfirmedOnly && !p.IsManualConfirmed {
			continue
		}
		if p.SimilarityScore < filter.MinSimilarity {
			continue
		}
		if filter.Source != "" && p.SourceA != filter.Source && p.SourceB != filter.Source {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SimilarityScore > out[j].SimilarityScore })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memPairStore) Confirm(_ context.Context, id int64, confirmedBy string) (domain.MatchedPair, error) {
	for i, p := range s.pairs {
		if p.ID == id {
			now := time.Now().UTC()
			p.IsManualConfirmed = true
			p.ConfirmedBy = confirmedBy
			p.ConfirmedAt = &now
			s.pairs[i] = p
			return p, nil
		}
	}
	return domain.MatchedPair{}, domain.ErrNotFound
}

func (s *memPairStore) Delete(_ context.Context, id int64) error {
	for i, p := range s.pairs {
		if p.ID == id {
			s.pairs = append(s.pairs[:i], s.pairs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *memPairStore) Stats(_ context.Context) (domain.PairStats, error) {
	stats := domain.PairStats{TotalPairs: int64(len(s.pairs))}
	sum := 0.0
	for _, p := range s.pairs {
		if p.IsManualConfirmed {
			stats.ConfirmedPairs++
		}
		if p.SimilarityScore > 0.8 {
			stats.HighSimilarity++
		}
		sum += p.SimilarityScore
	}
	if len(s.pairs) > 0 {
		stats.AvgSimilarity = sum / float64(len(s.pairs))
	}
	return stats, nil
}

// memOppStore is an in-memory domain.OpportunityStore.
type memOppStore struct {
	opps []domain.ArbitrageOpportunity
}

func (s *memOppStore) Insert(_ context.Context, opp domain.ArbitrageOpportunity) error {
	s.opps = append(s.opps, opp)
	return nil
}

func (s *memOppStore) InsertBatch(ctx context.Context, opps []domain.ArbitrageOpportunity) error {
	for _, o := range opps {
		if err := s.Insert(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (s *memOppStore) ListRecent(_ context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	out := make([]domain.ArbitrageOpportunity, len(s.opps))
	copy(out, s.opps)
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memOppStore) CountSince(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, o := range s.opps {
		if !o.DetectedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

var (
	_ domain.MarketStore      = (*memMarketStore)(nil)
	_ domain.MatchedPairStore = (*memPairStore)(nil)
	_ domain.OpportunityStore = (*memOppStore)(nil)
)
