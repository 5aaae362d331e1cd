package predictit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestAPIMarket_Normalize_SingleContractSynthesizesPair(t *testing.T) {
	raw := APIMarket{
		ID:        7057,
		Name:      "Will the Senate confirm the nominee?",
		ShortName: "Senate confirmation",
		URL:       "https://www.predictit.org/markets/detail/7057",
		Status:    "Open",
		TimeStamp: "2025-01-30T18:08:18.8043857",
		Contracts: []APIContract{{
			ID:              13001,
			Name:            "Will the Senate confirm the nominee?",
			LastTradePrice:  fptr(0.72),
			BestBuyYesCost:  fptr(0.74),
			BestBuyNoCost:   fptr(0.28),
			BestSellYesCost: fptr(0.71),
			BestSellNoCost:  fptr(0.26),
		}},
	}

	m := raw.Normalize()

	assert.Equal(t, "predictit", m.Source)
	assert.Equal(t, "7057", m.MarketID)
	assert.Equal(t, "Senate confirmation", m.Category)
	assert.Equal(t, "2025-01-30T18:08:18.8043857", m.EventTime)
	assert.Equal(t, domain.MarketStatusActive, m.Status)
	require.Len(t, m.Contracts, 2)

	yes, no := m.Contracts[0], m.Contracts[1]
	assert.Equal(t, "13001_YES", yes.ContractID)
	assert.Equal(t, "YES", yes.Side)
	assert.Equal(t, domain.OutcomeBinary, yes.OutcomeType)
	assert.InDelta(t, 0.74, *yes.Ask, 1e-9)
	assert.InDelta(t, 0.71, *yes.Bid, 1e-9)
	assert.InDelta(t, 0.72, *yes.LastPrice, 1e-9)

	assert.Equal(t, "13001_NO", no.ContractID)
	assert.InDelta(t, 0.28, *no.Ask, 1e-9)
	assert.InDelta(t, 0.26, *no.Bid, 1e-9)
	assert.Nil(t, no.LastPrice)
}

func TestAPIMarket_Normalize_MultiContract(t *testing.T) {
	raw := APIMarket{
		ID:     8001,
		Name:   "Who will win the primary?",
		Status: "Open",
		Contracts: []APIContract{
			{ID: 1, Name: "Alvarez", BestBuyYesCost: fptr(0.45), LastTradePrice: fptr(0.44)},
			{ID: 2, Name: "Baker", BestBuyYesCost: fptr(0.35)},
			{ID: 3, Name: "Chen", BestBuyYesCost: fptr(0.25)},
		},
	}

	m := raw.Normalize()

	require.Len(t, m.Contracts, 3)
	assert.Equal(t, "Alvarez", m.Contracts[0].Side)
	assert.Equal(t, "1", m.Contracts[0].ContractID)
	for _, c := range m.Contracts {
		assert.Equal(t, domain.OutcomeMulti, c.OutcomeType)
	}
}

func TestAPIMarket_Normalize_TwoContractsAreBinary(t *testing.T) {
	raw := APIMarket{
		ID:     8002,
		Name:   "Which party wins the seat?",
		Status: "Closed",
		Contracts: []APIContract{
			{ID: 1, Name: "Democratic"},
			{ID: 2, Name: "Republican"},
		},
	}

	m := raw.Normalize()

	assert.Equal(t, domain.MarketStatusClosed, m.Status)
	require.Len(t, m.Contracts, 2)
	for _, c := range m.Contracts {
		assert.Equal(t, domain.OutcomeBinary, c.OutcomeType)
	}
	// Missing quotes stay nil rather than becoming zeros.
	assert.Nil(t, m.Contracts[0].Ask)
}

func TestClient_Markets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/marketdata/all/", r.URL.Path)
		fmt.Fprint(w, `{"markets":[
			{"id":1,"name":"m1","status":"Open","contracts":[{"id":10,"name":"m1","bestBuyYesCost":0.5,"bestBuyNoCost":0.52}]},
			{"id":2,"name":"m2","status":"Open","contracts":[{"id":20,"name":"m2","bestBuyYesCost":0.3,"bestBuyNoCost":0.72}]}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, slog.Default())

	markets, err := c.Markets(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "1", markets[0].MarketID)
	require.Len(t, markets[0].Contracts, 2)

	limited, err := c.Markets(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestClient_RateLimitedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, slog.Default())
	_, err := c.AllMarkets(context.Background())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}
