package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketKey_Less(t *testing.T) {
	a := MarketKey{Source: "kalshi", MarketID: "BTC-100K"}
	b := MarketKey{Source: "polymarket", MarketID: "btc-100k"}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))

	// Same source falls back to market ID.
	c := MarketKey{Source: "kalshi", MarketID: "A"}
	d := MarketKey{Source: "kalshi", MarketID: "B"}
	assert.True(t, c.Less(d))
	assert.False(t, c.Less(c))
}

func TestMatchedPair_Canonicalize_SwapsWhenOutOfOrder(t *testing.T) {
	p := MatchedPair{
		SourceA:   "polymarket",
		MarketIDA: "btc-100k",
		SourceB:   "kalshi",
		MarketIDB: "BTC-100K",
	}
	p.Canonicalize()
	assert.Equal(t, "kalshi", p.SourceA)
	assert.Equal(t, "BTC-100K", p.MarketIDA)
	assert.Equal(t, "polymarket", p.SourceB)
	assert.Equal(t, "btc-100k", p.MarketIDB)
}

func TestMatchedPair_Canonicalize_NoopWhenOrdered(t *testing.T) {
	p := MatchedPair{
		SourceA:   "kalshi",
		MarketIDA: "BTC-100K",
		SourceB:   "predictit",
		MarketIDB: "7057",
	}
	p.Canonicalize()
	assert.Equal(t, "kalshi", p.SourceA)
	assert.Equal(t, "predictit", p.SourceB)
}

func TestNewMatchedPair_SameRecordRegardlessOfOrder(t *testing.T) {
	a := Market{Source: "polymarket", MarketID: "btc-100k", Name: "Bitcoin above 100k?"}
	b := Market{Source: "kalshi", MarketID: "BTC-100K", Name: "Bitcoin above $100,000?"}

	ab := NewMatchedPair(MatchResult{MarketA: a, MarketB: b, OverallScore: 0.82})
	ba := NewMatchedPair(MatchResult{MarketA: b, MarketB: a, OverallScore: 0.82})

	assert.Equal(t, ab.SourceA, ba.SourceA)
	assert.Equal(t, ab.MarketIDA, ba.MarketIDA)
	assert.Equal(t, ab.SourceB, ba.SourceB)
	assert.Equal(t, ab.MarketIDB, ba.MarketIDB)
	assert.True(t, ab.KeyA().Less(ab.KeyB()))
}

func TestNewMatchedPair_CarriesComponentScores(t *testing.T) {
	res := MatchResult{
		MarketA:        Market{Source: "kalshi", MarketID: "X"},
		MarketB:        Market{Source: "polymarket", MarketID: "y"},
		NameScore:      0.9,
		CategoryScore:  1.0,
		StructureScore: 0.8,
		TemporalScore:  0.5,
		OverallScore:   0.85,
	}
	p := NewMatchedPair(res)
	assert.Equal(t, 0.85, p.SimilarityScore)
	if assert.NotNil(t, p.NameScore) {
		assert.Equal(t, 0.9, *p.NameScore)
	}
	if assert.NotNil(t, p.TemporalScore) {
		assert.Equal(t, 0.5, *p.TemporalScore)
	}
}

func TestContract_EffectivePrice(t *testing.T) {
	ask := 0.42
	last := 0.40

	c := Contract{Ask: &ask, LastPrice: &last}
	got, ok := c.EffectivePrice()
	assert.True(t, ok)
	assert.Equal(t, 0.42, got)

	c = Contract{LastPrice: &last}
	got, ok = c.EffectivePrice()
	assert.True(t, ok)
	assert.Equal(t, 0.40, got)

	c = Contract{}
	_, ok = c.EffectivePrice()
	assert.False(t, ok)
}

func TestArbitrageOpportunity_Category(t *testing.T) {
	assert.Equal(t, "arbitrage", ArbitrageOpportunity{IsArbitrage: true}.Category())
	assert.Equal(t, "scalp", ArbitrageOpportunity{IsScalp: true}.Category())
	assert.Equal(t, "hedge", ArbitrageOpportunity{}.Category())
}
