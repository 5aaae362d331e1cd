package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(Config{BaseURL: baseURL}, slog.Default())
}

func TestAPIMarket_Normalize(t *testing.T) {
	raw := APIMarket{
		Ticker:         "PRES-2028-DEM",
		EventTicker:    "PRES-2028",
		Title:          "Will a Democrat win the 2028 presidential election?",
		Status:         "open",
		YesBid:         52,
		YesAsk:         54,
		NoBid:          46,
		NoAsk:          48,
		LastPrice:      53,
		Volume:         120000,
		ExpirationTime: "2028-11-07T15:00:00Z",
		Category:       "Politics",
	}

	m := raw.Normalize()

	assert.Equal(t, "kalshi", m.Source)
	assert.Equal(t, "PRES-2028-DEM", m.MarketID)
	assert.Equal(t, "Politics", m.Category)
	assert.Equal(t, "2028-11-07T15:00:00Z", m.EventTime)
	assert.Equal(t, domain.MarketStatusActive, m.Status)
	require.Len(t, m.Contracts, 2)

	yes, no := m.Contracts[0], m.Contracts[1]
	assert.Equal(t, "YES", yes.Side)
	assert.Equal(t, "PRES-2028-DEM_YES", yes.ContractID)
	assert.Equal(t, domain.OutcomeBinary, yes.OutcomeType)
	require.NotNil(t, yes.Bid)
	assert.InDelta(t, 0.52, *yes.Bid, 1e-9)
	require.NotNil(t, yes.Ask)
	assert.InDelta(t, 0.54, *yes.Ask, 1e-9)
	require.NotNil(t, yes.LastPrice)
	assert.InDelta(t, 0.53, *yes.LastPrice, 1e-9)

	assert.Equal(t, "NO", no.Side)
	require.NotNil(t, no.Ask)
	assert.InDelta(t, 0.48, *no.Ask, 1e-9)
	assert.Nil(t, no.LastPrice)
}

func TestAPIMarket_Normalize_Fallbacks(t *testing.T) {
	raw := APIMarket{
		Ticker:      "FED-25DEC",
		EventTicker: "FED",
		Status:      "settled",
	}

	m := raw.Normalize()

	// Title falls back to the ticker, category to the event ticker.
	assert.Equal(t, "FED-25DEC", m.Name)
	assert.Equal(t, "FED", m.Category)
	assert.Equal(t, domain.MarketStatusSettled, m.Status)

	// Zero cent fields mean unquoted, not free.
	for _, c := range m.Contracts {
		assert.Nil(t, c.Bid)
		assert.Nil(t, c.Ask)
		assert.Nil(t, c.LastPrice)
	}
}

func TestOrderbook_BestYesBidAsk(t *testing.T) {
	book := Orderbook{
		Yes: []PriceLevel{{40, 100}, {43, 50}, {41, 20}},
		No:  []PriceLevel{{55, 80}, {52, 10}},
	}

	bid, ask := book.BestYesBidAsk()
	require.NotNil(t, bid)
	require.NotNil(t, ask)
	assert.InDelta(t, 0.43, *bid, 1e-9)
	// Best NO bid 55c implies YES ask 1 - 0.55.
	assert.InDelta(t, 0.45, *ask, 1e-9)
}

func TestOrderbook_BestYesBidAsk_EmptySide(t *testing.T) {
	book := Orderbook{Yes: []PriceLevel{{40, 100}}}
	bid, ask := book.BestYesBidAsk()
	assert.Nil(t, bid)
	assert.Nil(t, ask)
}

func TestApplyOrderbook_RefinesYesLegOnly(t *testing.T) {
	raw := APIMarket{Ticker: "T1", Title: "t", Status: "open", YesBid: 30, YesAsk: 70, NoBid: 40, NoAsk: 60}
	m := raw.Normalize()

	book := Orderbook{
		Yes: []PriceLevel{{35, 10}},
		No:  []PriceLevel{{45, 10}},
	}
	ApplyOrderbook(&m, &book)

	yes, no := m.Contracts[0], m.Contracts[1]
	assert.InDelta(t, 0.35, *yes.Bid, 1e-9)
	assert.InDelta(t, 0.55, *yes.Ask, 1e-9)
	// NO leg keeps the REST quote.
	assert.InDelta(t, 0.40, *no.Bid, 1e-9)
	assert.InDelta(t, 0.60, *no.Ask, 1e-9)
}

func TestClient_Markets_FollowsCursor(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/trade-api/v2/markets", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("status"))

		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprint(w, `{"markets":[{"ticker":"A","title":"a","status":"open","yes_ask":50,"no_ask":52}],"cursor":"page2"}`)
		case "page2":
			fmt.Fprint(w, `{"markets":[{"ticker":"B","title":"b","status":"open","yes_ask":30,"no_ask":72}],"cursor":""}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer srv.Close()

	c := testClient(t, srv.URL+"/trade-api/v2")
	markets, err := c.Markets(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "A", markets[0].MarketID)
	assert.Equal(t, "B", markets[1].MarketID)
	assert.False(t, markets[0].FetchedAt.IsZero())
}

func TestClient_Markets_StopsAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"markets":[{"ticker":"A","title":"a","status":"open"},{"ticker":"B","title":"b","status":"open"}],"cursor":"more"}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	markets, err := c.Markets(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, markets, 1)
}

func TestClient_SignedRequestHeaders(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	var gotKey, gotSig, gotTS, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("KALSHI-ACCESS-KEY")
		gotSig = r.Header.Get("KALSHI-ACCESS-SIGNATURE")
		gotTS = r.Header.Get("KALSHI-ACCESS-TIMESTAMP")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"market":{"ticker":"T1","title":"t","status":"open"}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/trade-api/v2", ApiKeyID: "key-1"}, slog.Default())
	require.NoError(t, c.SetRSAPrivateKey(pemBytes))

	_, err = c.GetMarket(context.Background(), "T1")
	require.NoError(t, err)

	assert.Equal(t, "key-1", gotKey)
	require.NotEmpty(t, gotSig)
	require.NotEmpty(t, gotTS)

	// The signature must verify over timestamp + method + path.
	sig, err := base64.StdEncoding.DecodeString(gotSig)
	require.NoError(t, err)
	hash := sha256.Sum256([]byte(gotTS + http.MethodGet + gotPath))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hash[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	assert.NoError(t, err)
}

func TestClient_UnsignedWithoutCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("KALSHI-ACCESS-KEY"))
		fmt.Fprint(w, `{"markets":[],"cursor":""}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, _, err := c.GetMarkets(context.Background(), "open", 10, "")
	require.NoError(t, err)
}

func TestClient_StatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/missing":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"code":"not_found","message":"no such market"}`)
		case "/markets/limited":
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"code":"rate_limit","message":"slow down"}`)
		}
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	_, err := c.GetMarket(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

	_, err = c.GetMarket(context.Background(), "limited")
	assert.True(t, errors.Is(err, domain.ErrRateLimited), "got %v", err)
}
