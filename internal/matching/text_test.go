package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Will Bitcoin close above $100,000?", "will bitcoin close above 100 000"},
		{"  multiple   spaces\tand\nnewlines  ", "multiple spaces and newlines"},
		{"under_score-dash", "under_score dash"},
		{"UPPER", "upper"},
		{"", ""},
		{"???", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanText(tc.in), "input %q", tc.in)
	}
}

func TestFuzzyRatio(t *testing.T) {
	// --- identical and empty ---
	assert.InDelta(t, 1.0, FuzzyRatio("bitcoin", "bitcoin"), 1e-9)
	assert.InDelta(t, 1.0, FuzzyRatio("", ""), 1e-9)

	// --- disjoint ---
	assert.InDelta(t, 0.0, FuzzyRatio("abc", "xyz"), 1e-9)
	assert.InDelta(t, 0.0, FuzzyRatio("yes", "no"), 1e-9)

	// --- partial overlap: longest block "bcd", ratio 2*3/8 ---
	assert.InDelta(t, 0.75, FuzzyRatio("abcd", "bcde"), 1e-9)

	// --- one side empty ---
	assert.InDelta(t, 0.0, FuzzyRatio("abc", ""), 1e-9)
}

func TestFuzzyRatio_Symmetry(t *testing.T) {
	a := "will bitcoin exceed 100k"
	b := "bitcoin above 100 000"
	assert.InDelta(t, FuzzyRatio(a, b), FuzzyRatio(b, a), 1e-9)
}

func TestParseEventTime(t *testing.T) {
	// --- zoned ISO ---
	ts, ok := ParseEventTime("2025-12-31T23:59:59Z")
	assert.True(t, ok)
	assert.Equal(t, 2025, ts.Year())

	// --- naive timestamp with fractional seconds ---
	ts, ok = ParseEventTime("2025-01-30T18:08:18.8043857")
	assert.True(t, ok)
	assert.Equal(t, 30, ts.Day())

	// --- bare date ---
	ts, ok = ParseEventTime("2025-12-31")
	assert.True(t, ok)
	assert.Equal(t, 31, ts.Day())

	// --- missing and garbage ---
	_, ok = ParseEventTime("")
	assert.False(t, ok)
	_, ok = ParseEventTime("   ")
	assert.False(t, ok)
	_, ok = ParseEventTime("not a date")
	assert.False(t, ok)
}

func TestDaysApart(t *testing.T) {
	a, _ := ParseEventTime("2025-12-31T23:00:00Z")
	b, _ := ParseEventTime("2026-01-02T01:00:00Z")
	assert.True(t, SameDay(a, a))
	assert.False(t, SameDay(a, b))
	// Date parts are 2 days apart even though the clock gap is 26h.
	assert.InDelta(t, 2.0, DaysApart(a, b), 1e-9)
	assert.InDelta(t, 2.0, DaysApart(b, a), 1e-9)
}
