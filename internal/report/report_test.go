package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func TestMatches_RendersSortedRows(t *testing.T) {
	var buf bytes.Buffer
	Matches(&buf, []domain.MatchedPair{
		{ID: 1, SourceA: "kalshi", MarketIDA: "k1", SourceB: "polymarket", MarketIDB: "p1", SimilarityScore: 0.62},
		{ID: 2, SourceA: "kalshi", MarketIDA: "k2", SourceB: "polymarket", MarketIDB: "p2", SimilarityScore: 0.91, IsManualConfirmed: true, ConfirmedBy: "alice"},
	})

	out := buf.String()
	assert.Contains(t, out, "kalshi/k1")
	assert.Contains(t, out, "0.910")
	assert.Contains(t, out, "yes (alice)")
	// Highest similarity renders first.
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("k2")), bytes.Index(buf.Bytes(), []byte("k1")))
}

func TestMatches_EmptyInput(t *testing.T) {
	var buf bytes.Buffer
	Matches(&buf, nil)
	assert.Contains(t, buf.String(), "no matches found")
}

func TestOpportunities_RendersLegs(t *testing.T) {
	var buf bytes.Buffer
	Opportunities(&buf, []domain.ArbitrageOpportunity{{
		Type:            domain.OpportunityBothSides,
		YesLeg:          domain.OpportunityLeg{Source: "kalshi", MarketID: "k1", Price: 0.40},
		NoLeg:           domain.OpportunityLeg{Source: "polymarket", MarketID: "p1", Price: 0.30},
		TotalInvestment: 0.70,
		MinProfit:       0.30,
		ROIPercent:      42.86,
		Similarity:      0.9,
	}})

	out := buf.String()
	assert.Contains(t, out, "both_sides")
	assert.Contains(t, out, "kalshi/k1 @ 0.40")
	assert.Contains(t, out, "42.86")
}

func TestFeatureImportance_OrdersByShare(t *testing.T) {
	var buf bytes.Buffer
	FeatureImportance(&buf, map[string]float64{
		"name_similarity": 0.6,
		"day_difference":  0.3,
		"category_match":  0.1,
	})

	out := buf.Bytes()
	assert.Less(t, bytes.Index(out, []byte("name_similarity")), bytes.Index(out, []byte("day_difference")))
	assert.Less(t, bytes.Index(out, []byte("day_difference")), bytes.Index(out, []byte("category_match")))
}
