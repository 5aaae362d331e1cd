package arbitrage

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func binaryMarket(source, id, name string, yesAsk, noAsk float64) domain.Market {
	return domain.Market{
		Source:   source,
		MarketID: id,
		Name:     name,
		Contracts: []domain.Contract{
			{Source: source, MarketID: id, ContractID: id + "_yes", Name: "YES", Side: "YES", OutcomeType: domain.OutcomeBinary, Ask: domain.Float64Ptr(yesAsk)},
			{Source: source, MarketID: id, ContractID: id + "_no", Name: "NO", Side: "NO", OutcomeType: domain.OutcomeBinary, Ask: domain.Float64Ptr(noAsk)},
		},
	}
}

func pairFor(a, b domain.Market, similarity float64) domain.MatchedPair {
	return domain.MatchedPair{
		ID:              42,
		SourceA:         a.Source,
		MarketIDA:       a.MarketID,
		SourceB:         b.Source,
		MarketIDB:       b.MarketID,
		SimilarityScore: similarity,
	}
}

func newTestDetector(markets ...domain.Market) *Detector {
	d := NewDetector(DefaultConfig(), slog.Default())
	d.RegisterMarkets(markets)
	return d
}

func TestDetector_CrossVenueHedge(t *testing.T) {
	a := binaryMarket("kalshi", "k1", "Bitcoin above 100k", 0.40, 0.60)
	b := binaryMarket("polymarket", "p1", "Bitcoin to exceed 100k", 0.65, 0.30)
	d := newTestDetector(a, b)

	opps := d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)})

	require.Len(t, opps, 1)
	opp := opps[0]

	// Cheaper YES is on kalshi, cheaper NO on polymarket.
	assert.Equal(t, "kalshi", opp.YesLeg.Source)
	assert.InDelta(t, 0.40, opp.YesLeg.Price, 1e-9)
	assert.Equal(t, "polymarket", opp.NoLeg.Source)
	assert.InDelta(t, 0.30, opp.NoLeg.Price, 1e-9)

	assert.InDelta(t, 0.70, opp.TotalInvestment, 1e-9)
	assert.InDelta(t, 0.30, opp.MinProfit, 1e-9)
	assert.InDelta(t, opp.MinProfit, opp.ProfitIfYes, 1e-12)
	assert.InDelta(t, opp.MinProfit, opp.ProfitIfNo, 1e-12)
	assert.InDelta(t, 100.0*0.3/0.7, opp.ROIPercent, 1e-9)
	assert.InDelta(t, -0.30, opp.BreakEvenSpread, 1e-9)

	assert.True(t, opp.IsArbitrage)
	assert.False(t, opp.IsScalp)
	assert.Equal(t, domain.OpportunityBothSides, opp.Type)
	assert.InDelta(t, 0.9, opp.Similarity, 1e-9)

	assert.Contains(t, opp.Notes, "Buy YES at kalshi ($0.4000)")
	assert.Contains(t, opp.Notes, "NO at polymarket ($0.3000)")

	assert.NotEmpty(t, opp.ID)
	assert.False(t, opp.DetectedAt.IsZero())
	require.NotNil(t, opp.MatchedPairID)
	assert.EqualValues(t, 42, *opp.MatchedPairID)
}

func TestDetector_TieFavorsMarketA(t *testing.T) {
	a := binaryMarket("kalshi", "k1", "m", 0.45, 0.45)
	b := binaryMarket("polymarket", "p1", "m", 0.45, 0.45)
	d := newTestDetector(a, b)

	opps := d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)})

	require.Len(t, opps, 1)
	assert.Equal(t, "kalshi", opps[0].YesLeg.Source)
	assert.Equal(t, "kalshi", opps[0].NoLeg.Source)
}

func TestDetector_SkipsUnregisteredMarkets(t *testing.T) {
	a := binaryMarket("kalshi", "k1", "m", 0.40, 0.40)
	b := binaryMarket("polymarket", "p1", "m", 0.40, 0.40)
	d := newTestDetector(a) // b never registered

	assert.Empty(t, d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)}))
}

func TestDetector_SkipsNonBinaryMarkets(t *testing.T) {
	a := binaryMarket("kalshi", "k1", "m", 0.40, 0.40)
	multi := domain.Market{
		Source:   "predictit",
		MarketID: "m1",
		Name:     "Who wins the primary?",
		Contracts: []domain.Contract{
			{ContractID: "c1", Name: "Candidate A", Side: "Candidate A", OutcomeType: domain.OutcomeMulti, Ask: domain.Float64Ptr(0.4)},
			{ContractID: "c2", Name: "Candidate B", Side: "Candidate B", OutcomeType: domain.OutcomeMulti, Ask: domain.Float64Ptr(0.3)},
			{ContractID: "c3", Name: "Candidate C", Side: "Candidate C", OutcomeType: domain.OutcomeMulti, Ask: domain.Float64Ptr(0.3)},
		},
	}
	d := newTestDetector(a, multi)

	assert.Empty(t, d.DetectOpportunities([]domain.MatchedPair{pairFor(a, multi, 0.9)}))
}

func TestDetector_SkipsMissingPrices(t *testing.T) {
	a := binaryMarket("kalshi", "k1", "m", 0.40, 0.40)
	b := binaryMarket("polymarket", "p1", "m", 0.40, 0.40)
	b.Contracts[1].Ask = nil // no ask and no last trade on the NO side
	d := newTestDetector(a, b)

	assert.Empty(t, d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)}))
}

func TestDetector_AskFallsBackToLastPrice(t *testing.T) {
	a := binaryMarket("kalshi", "k1", "m", 0.40, 0.40)
	b := binaryMarket("polymarket", "p1", "m", 0.40, 0.40)
	b.Contracts[1].Ask = nil
	b.Contracts[1].LastPrice = domain.Float64Ptr(0.35)
	d := newTestDetector(a, b)

	opps := d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)})

	require.Len(t, opps, 1)
	assert.InDelta(t, 0.35, opps[0].NoLeg.Price, 1e-9)
	assert.Equal(t, "polymarket", opps[0].NoLeg.Source)
}

func TestDetector_SkipsPricesOutsideRange(t *testing.T) {
	a := binaryMarket("kalshi", "k1", "m", 0.40, 0.40)
	b := binaryMarket("polymarket", "p1", "m", 1.20, 0.40)
	d := newTestDetector(a, b)

	assert.Empty(t, d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)}))
}

func TestDetector_DiscardsBelowMinProfit(t *testing.T) {
	// Best hedge costs 0.995: profit 0.005 is under the $0.01 floor.
	a := binaryMarket("kalshi", "k1", "m", 0.50, 0.52)
	b := binaryMarket("polymarket", "p1", "m", 0.51, 0.495)
	d := newTestDetector(a, b)

	assert.Empty(t, d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)}))
}

func TestDetector_HedgeTypeWhenNotProfitable(t *testing.T) {
	// Lowering the profit floor lets loss-making hedges through; they are
	// classified as hedge, not arbitrage.
	cfg := DefaultConfig()
	cfg.MinProfitThreshold = -1.0
	d := NewDetector(cfg, slog.Default())

	a := binaryMarket("kalshi", "k1", "m", 0.55, 0.55)
	b := binaryMarket("polymarket", "p1", "m", 0.55, 0.55)
	d.RegisterMarkets([]domain.Market{a, b})

	opps := d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)})

	require.Len(t, opps, 1)
	assert.False(t, opps[0].IsArbitrage)
	assert.Equal(t, domain.OpportunityHedge, opps[0].Type)
	assert.InDelta(t, -0.10, opps[0].MinProfit, 1e-9)
	assert.InDelta(t, 0.10, opps[0].BreakEvenSpread, 1e-9)
	assert.Less(t, opps[0].ROIPercent, 0.0)
}

func TestDetector_SortedByProfitDescending(t *testing.T) {
	a1 := binaryMarket("kalshi", "k1", "m1", 0.40, 0.40) // profit 0.20
	b1 := binaryMarket("polymarket", "p1", "m1", 0.45, 0.45)
	a2 := binaryMarket("kalshi", "k2", "m2", 0.30, 0.30) // profit 0.40
	b2 := binaryMarket("polymarket", "p2", "m2", 0.35, 0.35)
	d := newTestDetector(a1, b1, a2, b2)

	opps := d.DetectOpportunities([]domain.MatchedPair{
		pairFor(a1, b1, 0.9),
		pairFor(a2, b2, 0.9),
	})

	require.Len(t, opps, 2)
	assert.Equal(t, "k2", opps[0].MarketIDA)
	assert.InDelta(t, 0.40, opps[0].MinProfit, 1e-9)
	assert.GreaterOrEqual(t, opps[0].MinProfit, opps[1].MinProfit)
}

func TestDetector_BestOpportunitiesLimit(t *testing.T) {
	a1 := binaryMarket("kalshi", "k1", "m1", 0.40, 0.40)
	b1 := binaryMarket("polymarket", "p1", "m1", 0.45, 0.45)
	a2 := binaryMarket("kalshi", "k2", "m2", 0.30, 0.30)
	b2 := binaryMarket("polymarket", "p2", "m2", 0.35, 0.35)
	d := newTestDetector(a1, b1, a2, b2)

	pairs := []domain.MatchedPair{pairFor(a1, b1, 0.9), pairFor(a2, b2, 0.9)}

	best := d.BestOpportunities(pairs, 1)
	require.Len(t, best, 1)
	assert.Equal(t, "k2", best[0].MarketIDA)

	assert.Len(t, d.BestOpportunities(pairs, 0), 2)
}

func TestDetector_RegisterMarketsOverwrites(t *testing.T) {
	a := binaryMarket("kalshi", "k1", "m", 0.40, 0.40)
	d := newTestDetector(a, a, a)
	assert.Equal(t, 1, d.RegisteredMarkets())

	// Re-registering with fresh quotes replaces the snapshot.
	updated := binaryMarket("kalshi", "k1", "m", 0.20, 0.20)
	d.RegisterMarkets([]domain.Market{updated})
	assert.Equal(t, 1, d.RegisteredMarkets())

	b := binaryMarket("polymarket", "p1", "m", 0.45, 0.45)
	d.RegisterMarkets([]domain.Market{b})
	opps := d.DetectOpportunities([]domain.MatchedPair{pairFor(updated, b, 0.9)})
	require.Len(t, opps, 1)
	assert.InDelta(t, 0.20, opps[0].YesLeg.Price, 1e-9)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "No arbitrage opportunities found.", Summarize(nil))

	a := binaryMarket("kalshi", "k1", "m", 0.40, 0.40)
	b := binaryMarket("polymarket", "p1", "m", 0.45, 0.45)
	d := newTestDetector(a, b)
	opps := d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)})
	require.Len(t, opps, 1)

	out := Summarize(opps)
	assert.Contains(t, out, "Found 1 arbitrage opportunities:")
	assert.Contains(t, out, "1 ARBITRAGE (risk-free profit):")
	assert.Contains(t, out, "Min profit: $0.20")
}

func TestFormatOpportunity(t *testing.T) {
	a := binaryMarket("kalshi", "k1", "m", 0.40, 0.40)
	b := binaryMarket("polymarket", "p1", "m", 0.45, 0.45)
	d := newTestDetector(a, b)
	opps := d.DetectOpportunities([]domain.MatchedPair{pairFor(a, b, 0.9)})
	require.Len(t, opps, 1)

	out := FormatOpportunity(opps[0])
	assert.Contains(t, out, "KALSHI/k1 <-> POLYMARKET/p1")
	assert.Contains(t, out, "Type: BOTH_SIDES")
	assert.Contains(t, out, "Match Quality: 90.0%")
	assert.Contains(t, out, "ROI:")
	assert.Contains(t, out, "ARBITRAGE (risk-free profit opportunity)")
}
