package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// weightTolerance bounds how far the weight sum may drift from 1.0.
const weightTolerance = 0.01

// Weights distributes the overall score across the four similarity signals.
// They must sum to 1.0 within weightTolerance.
type Weights struct {
	Name      float64 `toml:"name"`
	Category  float64 `toml:"category"`
	Structure float64 `toml:"structure"`
	Temporal  float64 `toml:"temporal"`
}

// DefaultWeights favors name similarity, with contract structure as the
// strongest secondary signal.
func DefaultWeights() Weights {
	return Weights{Name: 0.4, Category: 0.2, Structure: 0.3, Temporal: 0.1}
}

// Validate rejects weight sets that do not sum to 1.0 within tolerance.
func (w Weights) Validate() error {
	sum := w.Name + w.Category + w.Structure + w.Temporal
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("similarity weights must sum to 1.0, got %.3f", sum)
	}
	return nil
}

// categorySimilarity compares venue category labels case-insensitively.
// A missing category on either side is neutral rather than a mismatch.
func categorySimilarity(a, b string) float64 {
	ca := strings.ToLower(strings.TrimSpace(a))
	cb := strings.ToLower(strings.TrimSpace(b))
	switch {
	case ca == "" || cb == "":
		return 0.5
	case ca == cb:
		return 1.0
	case strings.Contains(ca, cb) || strings.Contains(cb, ca):
		return 0.7
	default:
		return 0.0
	}
}

// structureSimilarity compares contract shape: 0.6 weight on the Jaccard
// overlap of outcome types, 0.4 on contract-count closeness. Markets with
// no contracts at all cannot be structurally compared.
func structureSimilarity(a, b domain.Market) float64 {
	if len(a.Contracts) == 0 || len(b.Contracts) == 0 {
		return 0.0
	}

	typesA := make(map[domain.OutcomeType]bool)
	for _, c := range a.Contracts {
		typesA[c.OutcomeType] = true
	}
	typesB := make(map[domain.OutcomeType]bool)
	for _, c := range b.Contracts {
		typesB[c.OutcomeType] = true
	}

	inter := 0
	for t := range typesA {
		if typesB[t] {
			inter++
		}
	}
	union := len(typesA) + len(typesB) - inter
	jaccard := float64(inter) / float64(union)

	countA := float64(len(a.Contracts))
	countB := float64(len(b.Contracts))
	countSim := 1.0 - math.Abs(countA-countB)/math.Max(countA, countB)

	return 0.6*jaccard + 0.4*countSim
}

// temporalSimilarity scores event-time proximity: 1.0 for the same calendar
// day, decaying linearly to 0.0 at windowDays apart. Unparseable or missing
// timestamps on either side score a neutral 0.5.
func temporalSimilarity(rawA, rawB string, windowDays int) float64 {
	ta, okA := ParseEventTime(rawA)
	tb, okB := ParseEventTime(rawB)
	if !okA || !okB {
		return 0.5
	}
	if SameDay(ta, tb) {
		return 1.0
	}
	days := DaysApart(ta, tb)
	if days >= float64(windowDays) {
		return 0.0
	}
	return 1.0 - days/float64(windowDays)
}
