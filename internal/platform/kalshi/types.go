package kalshi

import (
	"fmt"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Source is the venue tag attached to every normalized Kalshi market.
const Source = "kalshi"

// APIMarket represents a market as returned by the Kalshi REST API. Prices
// are cent-denominated integers (1-99); zero means the field is unquoted.
type APIMarket struct {
	Ticker         string `json:"ticker"`
	EventTicker    string `json:"event_ticker"`
	Title          string `json:"title"`
	Subtitle       string `json:"subtitle"`
	Status         string `json:"status"` // "open", "closed", "settled"
	YesBid         int64  `json:"yes_bid"`
	YesAsk         int64  `json:"yes_ask"`
	NoBid          int64  `json:"no_bid"`
	NoAsk          int64  `json:"no_ask"`
	LastPrice      int64  `json:"last_price"`
	Volume         int64  `json:"volume"`
	Volume24H      int64  `json:"volume_24h"`
	OpenInterest   int64  `json:"open_interest"`
	ExpirationTime string `json:"expiration_time"`
	Category       string `json:"category"`
	Result         string `json:"result"` // "yes", "no", "" (unsettled)
	OpenTime       string `json:"open_time"`
	CloseTime      string `json:"close_time"`
}

// Orderbook represents the resting bids for a Kalshi market. Kalshi books
// only carry bids; the ask side is implied by the binary complement.
type Orderbook struct {
	Ticker string       `json:"ticker"`
	Yes    []PriceLevel `json:"yes"`
	No     []PriceLevel `json:"no"`
}

// PriceLevel is a single [price_cents, quantity] entry. Kalshi encodes
// levels as two-element arrays.
type PriceLevel [2]int64

// Cents returns the price component of the level.
func (l PriceLevel) Cents() int64 { return l[0] }

// Quantity returns the contract count at the level.
func (l PriceLevel) Quantity() int64 { return l[1] }

// errorResponse is the Kalshi API error payload.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Normalize converts a raw Kalshi market into the common domain shape. The
// market id is the ticker, the category falls back to the event ticker, and
// the event time is the expiration timestamp. Both sides of the binary
// market become contracts, with cent prices converted to probabilities;
// unquoted (zero) cent fields become nil prices.
func (m *APIMarket) Normalize() domain.Market {
	name := m.Title
	if name == "" {
		name = m.Ticker
	}
	category := m.Category
	if category == "" {
		category = m.EventTicker
	}

	volume := float64(m.Volume)

	yes := domain.Contract{
		Source:      Source,
		MarketID:    m.Ticker,
		ContractID:  m.Ticker + "_YES",
		Name:        "YES",
		Side:        "YES",
		OutcomeType: domain.OutcomeBinary,
		Bid:         centPrice(m.YesBid),
		Ask:         centPrice(m.YesAsk),
		LastPrice:   centPrice(m.LastPrice),
		Volume:      &volume,
	}
	no := domain.Contract{
		Source:      Source,
		MarketID:    m.Ticker,
		ContractID:  m.Ticker + "_NO",
		Name:        "NO",
		Side:        "NO",
		OutcomeType: domain.OutcomeBinary,
		Bid:         centPrice(m.NoBid),
		Ask:         centPrice(m.NoAsk),
		Volume:      &volume,
	}

	return domain.Market{
		Source:    Source,
		MarketID:  m.Ticker,
		Name:      name,
		Category:  category,
		EventTime: m.ExpirationTime,
		URL:       MarketURL(m.Ticker),
		Status:    normalizeStatus(m.Status),
		Contracts: []domain.Contract{yes, no},
	}
}

// BestYesBidAsk extracts the best YES bid and an approximate YES ask from
// the book, both in probability space. The ask is derived from the binary
// complement of the best NO bid. Returns nils when either side of the book
// is empty or a derived value falls outside [0,1].
func (b *Orderbook) BestYesBidAsk() (bid, ask *float64) {
	if len(b.Yes) == 0 || len(b.No) == 0 {
		return nil, nil
	}

	bestYes := b.Yes[0].Cents()
	for _, l := range b.Yes[1:] {
		if l.Cents() > bestYes {
			bestYes = l.Cents()
		}
	}
	bestNo := b.No[0].Cents()
	for _, l := range b.No[1:] {
		if l.Cents() > bestNo {
			bestNo = l.Cents()
		}
	}

	yesBid := float64(bestYes) / 100.0
	yesAsk := 1.0 - float64(bestNo)/100.0

	if yesBid >= 0 && yesBid <= 1 {
		bid = &yesBid
	}
	if yesAsk >= 0 && yesAsk <= 1 {
		ask = &yesAsk
	}
	return bid, ask
}

// ApplyOrderbook refines a normalized market's YES leg with live book
// prices. Fields stay untouched when the book yields no usable value.
func ApplyOrderbook(m *domain.Market, book *Orderbook) {
	bid, ask := book.BestYesBidAsk()
	if bid == nil && ask == nil {
		return
	}
	for i := range m.Contracts {
		if m.Contracts[i].Side != "YES" {
			continue
		}
		if bid != nil {
			m.Contracts[i].Bid = bid
		}
		if ask != nil {
			m.Contracts[i].Ask = ask
		}
	}
}

func normalizeStatus(s string) domain.MarketStatus {
	switch s {
	case "open", "active":
		return domain.MarketStatusActive
	case "settled", "finalized":
		return domain.MarketStatusSettled
	default:
		return domain.MarketStatusClosed
	}
}

// centPrice converts a cent-denominated quote to a probability pointer.
// Kalshi sends 0 for unquoted fields, which maps to nil.
func centPrice(cents int64) *float64 {
	if cents <= 0 {
		return nil
	}
	p := float64(cents) / 100.0
	return &p
}

// MarketURL returns the public web address for a ticker.
func MarketURL(ticker string) string {
	return fmt.Sprintf("https://kalshi.com/markets/%s", ticker)
}
