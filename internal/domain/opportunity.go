package domain

import "time"

// OpportunityType labels how an opportunity pays out.
type OpportunityType string

const (
	// OpportunityBothSides is a risk-free hedge: guaranteed payout above cost.
	OpportunityBothSides OpportunityType = "both_sides"
	// OpportunityHedge is a complete hedge whose payout does not cover cost.
	OpportunityHedge OpportunityType = "hedge"
)

// OpportunityLeg is one side of a hedged position: the contract to buy and
// the effective price it was evaluated at.
type OpportunityLeg struct {
	Source     string
	MarketID   string
	ContractID string
	Side       string
	Price      float64
}

// ArbitrageOpportunity quantifies a cross-venue hedge over one matched pair
// of binary markets. Buying the YES leg and the NO leg returns exactly 1.0
// regardless of outcome, so profit is identical under both branches; the
// branch fields stay separate for when directional strategies are added.
type ArbitrageOpportunity struct {
	ID string
	// MatchedPairID links back to the stored pair when it has been persisted.
	MatchedPairID *int64

	SourceA     string
	MarketIDA   string
	MarketNameA string
	SourceB     string
	MarketIDB   string
	MarketNameB string

	YesLeg OpportunityLeg
	NoLeg  OpportunityLeg

	TotalInvestment float64
	ProfitIfYes     float64
	ProfitIfNo      float64
	MinProfit       float64
	MaxProfit       float64
	ROIPercent      float64
	// BreakEvenSpread is investment minus the guaranteed 1.0 payout; negative
	// values mean the hedge locks in profit.
	BreakEvenSpread float64

	Similarity  float64
	IsArbitrage bool
	// IsScalp is reserved for directional strategies and is never set by the
	// hedge evaluation.
	IsScalp bool
	Type    OpportunityType

	Notes      string
	DetectedAt time.Time
}

// Category returns the summary bucket this opportunity belongs to.
func (o ArbitrageOpportunity) Category() string {
	switch {
	case o.IsArbitrage:
		return "arbitrage"
	case o.IsScalp:
		return "scalp"
	default:
		return "hedge"
	}
}
