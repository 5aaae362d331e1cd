package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func TestFlexStrings_BothShapes(t *testing.T) {
	var direct struct {
		Outcomes flexStrings `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"outcomes":["Yes","No"]}`), &direct))
	assert.Equal(t, flexStrings{"Yes", "No"}, direct.Outcomes)

	var nested struct {
		Outcomes flexStrings `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"outcomes":"[\"Yes\",\"No\"]"}`), &nested))
	assert.Equal(t, flexStrings{"Yes", "No"}, nested.Outcomes)

	var empty struct {
		Outcomes flexStrings `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"outcomes":""}`), &empty))
	assert.Empty(t, empty.Outcomes)
}

func TestAPIMarket_Normalize_Binary(t *testing.T) {
	raw := APIMarket{
		ID:            "512",
		Question:      "Will Bitcoin close above $100,000 on December 31?",
		Slug:          "bitcoin-above-100k",
		Category:      "Crypto",
		Active:        true,
		Outcomes:      flexStrings{"Yes", "No"},
		OutcomePrices: flexStrings{"0.62", "0.38"},
		Volume:        "250000.5",
		EndDate:       "2025-12-31T00:00:00Z",
	}

	m := raw.Normalize()

	assert.Equal(t, "polymarket", m.Source)
	assert.Equal(t, "bitcoin-above-100k", m.MarketID)
	assert.Equal(t, "2025-12-31T00:00:00Z", m.EventTime)
	assert.Equal(t, domain.MarketStatusActive, m.Status)
	assert.Equal(t, "https://polymarket.com/event/bitcoin-above-100k", m.URL)
	require.Len(t, m.Contracts, 2)

	yes := m.Contracts[0]
	assert.Equal(t, "bitcoin-above-100k_Yes", yes.ContractID)
	assert.Equal(t, "Yes", yes.Side)
	assert.Equal(t, domain.OutcomeBinary, yes.OutcomeType)
	require.NotNil(t, yes.Ask)
	assert.InDelta(t, 0.62, *yes.Ask, 1e-9)
	require.NotNil(t, yes.LastPrice)
	assert.InDelta(t, 0.62, *yes.LastPrice, 1e-9)
	assert.Nil(t, yes.Bid)
}

func TestAPIMarket_Normalize_MultiOutcome(t *testing.T) {
	raw := APIMarket{
		ID:            "9",
		Question:      "Who wins the nomination?",
		Outcomes:      flexStrings{"Smith", "Jones", "Other"},
		OutcomePrices: flexStrings{"0.5", "0.3", "0.2"},
	}

	m := raw.Normalize()

	// No slug: the numeric id is the market id.
	assert.Equal(t, "9", m.MarketID)
	assert.Empty(t, m.URL)
	require.Len(t, m.Contracts, 3)
	for _, c := range m.Contracts {
		assert.Equal(t, domain.OutcomeMulti, c.OutcomeType)
	}
}

func TestAPIMarket_Normalize_BadPrice(t *testing.T) {
	raw := APIMarket{
		ID:            "7",
		Question:      "q",
		Outcomes:      flexStrings{"Yes", "No"},
		OutcomePrices: flexStrings{"not-a-number"},
	}

	m := raw.Normalize()
	require.Len(t, m.Contracts, 2)
	assert.Nil(t, m.Contracts[0].Ask)
	// Second outcome has no price entry at all.
	assert.Nil(t, m.Contracts[1].Ask)
}

func TestGammaClient_Markets_Paginates(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)

		if offset == "0" {
			fmt.Fprint(w, `[{"id":"1","question":"a","outcomes":["Yes","No"],"outcomePrices":["0.5","0.5"]}]`)
		} else {
			fmt.Fprint(w, `[]`)
		}
	}))
	defer srv.Close()

	g := NewGammaClient(Config{GammaHost: srv.URL}, slog.Default())
	markets, err := g.Markets(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, []string{"0", "1"}, offsets)
}

func TestGammaClient_GetMarketBySlug_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	g := NewGammaClient(Config{GammaHost: srv.URL}, slog.Default())
	_, err := g.GetMarketBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
