package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive  MarketStatus = "active"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// OutcomeType classifies a contract's payout structure.
type OutcomeType string

const (
	// OutcomeBinary is a two-sided YES/NO contract.
	OutcomeBinary OutcomeType = "binary"
	// OutcomeMulti is one leg of a market with more than two outcomes.
	OutcomeMulti OutcomeType = "multi"
)

// MarketKey identifies a market uniquely across venues.
type MarketKey struct {
	Source   string
	MarketID string
}

// Less reports whether k sorts lexicographically before other, comparing
// source first and market ID second. Used for canonical pair ordering.
func (k MarketKey) Less(other MarketKey) bool {
	if k.Source != other.Source {
		return k.Source < other.Source
	}
	return k.MarketID < other.MarketID
}

// Market is a venue listing normalized to the common shape shared by every
// platform client. The matcher and detector treat it as a read-only snapshot.
type Market struct {
	Source   string
	MarketID string // unique within Source
	Name     string
	Category string // empty when the venue provides none
	// EventTime is the venue's raw event/close timestamp. It is kept as the
	// original string because venues disagree on formats; consumers parse it
	// and treat unparseable values as missing.
	EventTime string
	URL       string
	Status    MarketStatus
	Contracts []Contract
	FetchedAt time.Time
}

// Key returns the market's (source, market_id) identity.
func (m Market) Key() MarketKey {
	return MarketKey{Source: m.Source, MarketID: m.MarketID}
}

// Contract is a single tradeable outcome within a market. Prices are
// probabilities in [0,1]; nil means the venue did not publish the field.
type Contract struct {
	Source      string
	MarketID    string
	ContractID  string
	Name        string
	Side        string // free text, commonly "YES"/"NO" or an outcome name
	OutcomeType OutcomeType
	Bid         *float64
	Ask         *float64
	LastPrice   *float64
	Volume      *float64
}

// EffectivePrice returns the price used for opportunity evaluation: the ask
// when present, otherwise the last traded price. The boolean is false when
// neither is available.
func (c Contract) EffectivePrice() (float64, bool) {
	if c.Ask != nil {
		return *c.Ask, true
	}
	if c.LastPrice != nil {
		return *c.LastPrice, true
	}
	return 0, false
}

// Float64Ptr returns a pointer to v. Convenience for building contracts with
// optional price fields.
func Float64Ptr(v float64) *float64 {
	return &v
}
