package domain

import "time"

// MatchConfidence is a discrete bucket summarizing match quality for human
// review.
type MatchConfidence string

const (
	ConfidenceLow    MatchConfidence = "low"
	ConfidenceMedium MatchConfidence = "medium"
	ConfidenceHigh   MatchConfidence = "high"
)

// ContractPair links one contract in market A with one in market B. Pairing
// is permissive: the same contract may appear in several pairs.
type ContractPair struct {
	ContractIDA string
	ContractIDB string
	OutcomeType OutcomeType
	Similarity  float64
}

// MatchResult is the matcher's output for one pair of markets. It is
// ephemeral; persisting a match produces a MatchedPair.
type MatchResult struct {
	MarketA Market
	MarketB Market

	NameScore      float64
	CategoryScore  float64
	StructureScore float64
	TemporalScore  float64
	OverallScore   float64

	Confidence    MatchConfidence
	ContractPairs []ContractPair
	Notes         string
}

// MatchedPair is a persisted link between two markets on different venues.
// The pair is unordered: rows are stored canonically with the
// lexicographically smaller (source, market_id) tuple in the A slot so the
// same pair saved in either order resolves to one record.
type MatchedPair struct {
	ID int64

	SourceA   string
	MarketIDA string
	SourceB   string
	MarketIDB string

	SimilarityScore float64
	// ClassifierProb is the trained classifier's match probability, when one
	// was run for this pair.
	ClassifierProb *float64
	NameScore      *float64
	CategoryScore  *float64
	StructureScore *float64
	TemporalScore  *float64

	IsManualConfirmed bool
	ConfirmedBy       string
	ConfirmedAt       *time.Time

	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KeyA returns the identity of the pair's first market.
func (p MatchedPair) KeyA() MarketKey {
	return MarketKey{Source: p.SourceA, MarketID: p.MarketIDA}
}

// KeyB returns the identity of the pair's second market.
func (p MatchedPair) KeyB() MarketKey {
	return MarketKey{Source: p.SourceB, MarketID: p.MarketIDB}
}

// Canonicalize swaps the A and B slots when needed so that
// (source_a, market_id_a) < (source_b, market_id_b). Component scores are
// symmetric and need no swapping.
func (p *MatchedPair) Canonicalize() {
	if p.KeyB().Less(p.KeyA()) {
		p.SourceA, p.SourceB = p.SourceB, p.SourceA
		p.MarketIDA, p.MarketIDB = p.MarketIDB, p.MarketIDA
	}
}

// NewMatchedPair builds a canonicalized MatchedPair from a MatchResult.
func NewMatchedPair(res MatchResult) MatchedPair {
	p := MatchedPair{
		SourceA:         res.MarketA.Source,
		MarketIDA:       res.MarketA.MarketID,
		SourceB:         res.MarketB.Source,
		MarketIDB:       res.MarketB.MarketID,
		SimilarityScore: res.OverallScore,
		NameScore:       Float64Ptr(res.NameScore),
		CategoryScore:   Float64Ptr(res.CategoryScore),
		StructureScore:  Float64Ptr(res.StructureScore),
		TemporalScore:   Float64Ptr(res.TemporalScore),
		Notes:           res.Notes,
	}
	p.Canonicalize()
	return p
}

// PairStats summarizes the matched-pair table for dashboards.
type PairStats struct {
	TotalPairs     int64
	ConfirmedPairs int64
	// HighSimilarity counts pairs with similarity above 0.8.
	HighSimilarity int64
	AvgSimilarity  float64
}
