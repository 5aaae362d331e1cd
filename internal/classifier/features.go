// Package classifier trains and applies a logistic regression model that
// scores the probability that two market listings from different venues
// describe the same real-world event. It complements the heuristic matcher:
// the matcher proposes candidate pairs, the classifier learns from manually
// confirmed pairs which signals actually predict a true match.
package classifier

import (
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
)

const numFeatures = 3

// missingDayDiff stands in for the day-difference feature when either event
// time is absent or unparseable. A year apart is far enough to act as a
// strong mismatch signal without destabilizing the scaler.
const missingDayDiff = 365.0

var featureNames = [numFeatures]string{"name_similarity", "day_difference", "category_match"}

// FeatureNames returns the model's feature names in column order.
func FeatureNames() []string {
	return []string{featureNames[0], featureNames[1], featureNames[2]}
}

// Features extracts the model's feature vector for a market pair:
// fuzzy name similarity in [0,1], absolute day difference between event
// dates, and an exact category match flag.
func Features(a, b domain.Market) [numFeatures]float64 {
	return [numFeatures]float64{
		matching.FuzzyRatio(matching.CleanText(a.Name), matching.CleanText(b.Name)),
		dayDifference(a, b),
		categoryMatch(a, b),
	}
}

func dayDifference(a, b domain.Market) float64 {
	ta, okA := matching.ParseEventTime(a.EventTime)
	tb, okB := matching.ParseEventTime(b.EventTime)
	if !okA || !okB {
		return missingDayDiff
	}
	return matching.DaysApart(ta, tb)
}

// categoryMatch is stricter than the matcher's category scorer: only an
// exact case-insensitive match counts, and a missing category counts as a
// mismatch rather than neutral.
func categoryMatch(a, b domain.Market) float64 {
	ca := strings.ToLower(a.Category)
	cb := strings.ToLower(b.Category)
	if ca == "" || cb == "" {
		return 0.0
	}
	if ca == cb {
		return 1.0
	}
	return 0.0
}
