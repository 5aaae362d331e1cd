// Package matching scores pairs of prediction-market listings from different
// venues for semantic equivalence. It combines four similarity signals
// (name, category, contract structure, temporal proximity) under configurable
// weights and pairs up individual contracts within each match.
package matching

import (
	"strings"
	"time"
	"unicode"
)

// CleanText normalizes free text before similarity scoring: lowercase,
// punctuation replaced by spaces, whitespace runs collapsed, trimmed.
func CleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true // leading whitespace is dropped
	for _, r := range strings.ToLower(text) {
		keep := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		if !keep {
			// Punctuation and whitespace both collapse to one space.
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}

	return strings.TrimRight(b.String(), " ")
}

// FuzzyRatio returns a [0,1] similarity between two strings based on the
// total size of their longest matching blocks: 2*M / (len(a)+len(b)).
// Two empty strings are considered identical.
func FuzzyRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	b2j := make(map[rune][]int, len(rb))
	for j, r := range rb {
		b2j[r] = append(b2j[r], j)
	}

	matched := matchingSize(ra, rb, b2j, 0, len(ra), 0, len(rb))
	return 2.0 * float64(matched) / float64(total)
}

// matchBlock is a maximal run of identical runes starting at a[aIdx] and
// b[bIdx].
type matchBlock struct {
	aIdx, bIdx, size int
}

// matchingSize sums the sizes of all matching blocks within the given
// windows by recursing around the longest one.
func matchingSize(a, b []rune, b2j map[rune][]int, alo, ahi, blo, bhi int) int {
	m := longestMatch(a, b2j, alo, ahi, blo, bhi)
	if m.size == 0 {
		return 0
	}
	left := matchingSize(a, b, b2j, alo, m.aIdx, blo, m.bIdx)
	right := matchingSize(a, b, b2j, m.aIdx+m.size, ahi, m.bIdx+m.size, bhi)
	return m.size + left + right
}

// longestMatch finds the longest block of runes common to a[alo:ahi] and
// b[blo:bhi], preferring the earliest position in a, then in b, on ties.
func longestMatch(a []rune, b2j map[rune][]int, alo, ahi, blo, bhi int) matchBlock {
	best := matchBlock{aIdx: alo, bIdx: blo, size: 0}
	j2len := make(map[int]int)

	for i := alo; i < ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > best.size {
				best = matchBlock{aIdx: i - k + 1, bIdx: j - k + 1, size: k}
			}
		}
		j2len = newJ2len
	}

	return best
}

// eventTimeLayouts are tried in order after RFC 3339. Venues deliver a mix of
// zoned ISO timestamps, naive timestamps, and bare dates.
var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseEventTime parses a venue event timestamp. The boolean is false when
// the string is empty or matches no known layout.
func ParseEventTime(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysApart returns the absolute whole-day distance between the date parts
// of two timestamps.
func DaysApart(a, b time.Time) float64 {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := da.Sub(db).Hours() / 24
	if diff < 0 {
		return -diff
	}
	return diff
}
