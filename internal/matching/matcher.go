package matching

import (
	"log/slog"
	"sort"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// contractPairThreshold is the minimum fuzzy name similarity for two
// contracts to be considered the same outcome.
const contractPairThreshold = 0.6

// Config controls matcher behavior. DefaultConfig returns the stock values.
type Config struct {
	// Weights across the four similarity signals; must sum to 1.0.
	Weights Weights
	// MinScoreThreshold drops candidate pairs scoring below it.
	MinScoreThreshold float64
	// TemporalWindowDays is the span over which event-time proximity decays
	// from 1.0 to 0.0. Values below 1 fall back to the default.
	TemporalWindowDays int
	// CrossSourceOnly skips pairs listed on the same venue.
	CrossSourceOnly bool
}

// DefaultConfig mirrors the settings used by the scheduled match run.
func DefaultConfig() Config {
	return Config{
		Weights:            DefaultWeights(),
		MinScoreThreshold:  0.5,
		TemporalWindowDays: 7,
		CrossSourceOnly:    true,
	}
}

// Matcher scores market pairs for semantic equivalence. It holds no
// connections and is safe for concurrent use.
type Matcher struct {
	weights         Weights
	minScore        float64
	windowDays      int
	crossSourceOnly bool
	logger          *slog.Logger
}

// New validates cfg and builds a Matcher.
func New(cfg Config, logger *slog.Logger) (*Matcher, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.TemporalWindowDays < 1 {
		cfg.TemporalWindowDays = DefaultConfig().TemporalWindowDays
	}
	return &Matcher{
		weights:         cfg.Weights,
		minScore:        cfg.MinScoreThreshold,
		windowDays:      cfg.TemporalWindowDays,
		crossSourceOnly: cfg.CrossSourceOnly,
		logger:          logger.With(slog.String("component", "matcher")),
	}, nil
}

// FindMatches scores market pairs and returns those at or above the score
// threshold, ordered by descending score.
//
// With marketsB nil, markets within marketsA are paired against each other,
// each unordered pair considered once. With marketsB given, every market in
// marketsA is scored against every market in marketsB. Pairs referring to
// the same listing are never returned, and same-venue pairs are skipped
// unless CrossSourceOnly is off. Name similarity uses TF-IDF over the names
// of every market passed in, so scores are relative to this corpus.
func (m *Matcher) FindMatches(marketsA, marketsB []domain.Market) []domain.MatchResult {
	docs := make([]string, 0, len(marketsA)+len(marketsB))
	for _, mk := range marketsA {
		docs = append(docs, CleanText(mk.Name))
	}
	for _, mk := range marketsB {
		docs = append(docs, CleanText(mk.Name))
	}
	vectorizer := newTFIDFVectorizer(docs)

	vecsA := make([]sparseVec, len(marketsA))
	for i := range marketsA {
		vecsA[i] = vectorizer.transform(docs[i])
	}
	vecsB := vecsA
	if marketsB != nil {
		vecsB = make([]sparseVec, len(marketsB))
		for i := range marketsB {
			vecsB[i] = vectorizer.transform(docs[len(marketsA)+i])
		}
	}

	candidatesB := marketsB
	if candidatesB == nil {
		candidatesB = marketsA
	}

	var results []domain.MatchResult
	for i, ma := range marketsA {
		jStart := 0
		if marketsB == nil {
			jStart = i + 1
		}
		for j := jStart; j < len(candidatesB); j++ {
			mb := candidatesB[j]
			if ma.Key() == mb.Key() {
				continue
			}
			if m.crossSourceOnly && ma.Source == mb.Source {
				continue
			}
			res := m.scorePair(ma, mb, cosine(vecsA[i], vecsB[j]))
			if res.OverallScore >= m.minScore {
				results = append(results, res)
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OverallScore > results[j].OverallScore
	})

	m.logger.Debug("match run complete",
		"markets_a", len(marketsA),
		"markets_b", len(marketsB),
		"matches", len(results),
	)
	return results
}

// MatchPair scores a single pair using fuzzy name similarity, which needs no
// corpus. A pair below the score threshold still yields a result, zeroed and
// marked low confidence, so callers can inspect why it missed.
func (m *Matcher) MatchPair(a, b domain.Market) domain.MatchResult {
	nameScore := FuzzyRatio(CleanText(a.Name), CleanText(b.Name))
	res := m.scorePair(a, b, nameScore)
	if res.OverallScore >= m.minScore {
		return res
	}
	return domain.MatchResult{
		MarketA:    a,
		MarketB:    b,
		Confidence: domain.ConfidenceLow,
		Notes:      "similarity below match threshold",
	}
}

func (m *Matcher) scorePair(a, b domain.Market, nameScore float64) domain.MatchResult {
	catScore := categorySimilarity(a.Category, b.Category)
	structScore := structureSimilarity(a, b)
	tempScore := temporalSimilarity(a.EventTime, b.EventTime, m.windowDays)

	overall := m.weights.Name*nameScore +
		m.weights.Category*catScore +
		m.weights.Structure*structScore +
		m.weights.Temporal*tempScore

	pairs := pairContracts(a, b)

	return domain.MatchResult{
		MarketA:        a,
		MarketB:        b,
		NameScore:      nameScore,
		CategoryScore:  catScore,
		StructureScore: structScore,
		TemporalScore:  tempScore,
		OverallScore:   overall,
		Confidence:     confidence(overall, nameScore, len(pairs)),
		ContractPairs:  pairs,
	}
}

// pairContracts links contracts across the two markets when they share an
// outcome type and their names are close. Pairing is permissive: one
// contract may appear in several pairs, and callers needing a one-to-one
// assignment must narrow it themselves.
func pairContracts(a, b domain.Market) []domain.ContractPair {
	var pairs []domain.ContractPair
	for _, ca := range a.Contracts {
		cleanA := CleanText(ca.Name)
		for _, cb := range b.Contracts {
			if ca.OutcomeType != cb.OutcomeType {
				continue
			}
			sim := FuzzyRatio(cleanA, CleanText(cb.Name))
			if sim > contractPairThreshold {
				pairs = append(pairs, domain.ContractPair{
					ContractIDA: ca.ContractID,
					ContractIDB: cb.ContractID,
					OutcomeType: ca.OutcomeType,
					Similarity:  sim,
				})
			}
		}
	}
	return pairs
}

// confidence grades a match. High demands a strong overall score backed by
// strong name agreement and at least one paired contract.
func confidence(overall, nameScore float64, contractPairs int) domain.MatchConfidence {
	switch {
	case overall > 0.8 && nameScore > 0.7 && contractPairs > 0:
		return domain.ConfidenceHigh
	case overall > 0.65 || (overall > 0.5 && contractPairs > 0):
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
