package predictit

import (
	"strconv"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Source is the venue tag attached to every normalized PredictIt market.
const Source = "predictit"

// APIMarket represents a market as returned by the PredictIt market data API.
type APIMarket struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	ShortName string        `json:"shortName"`
	URL       string        `json:"url"`
	Status    string        `json:"status"` // "Open", "Closed"
	TimeStamp string        `json:"timeStamp"`
	Contracts []APIContract `json:"contracts"`
}

// APIContract is a single PredictIt contract. Prices are dollar-denominated
// probabilities (0.01-0.99); null means no resting order on that side.
type APIContract struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	ShortName       string   `json:"shortName"`
	Status          string   `json:"status"`
	LastTradePrice  *float64 `json:"lastTradePrice"`
	BestBuyYesCost  *float64 `json:"bestBuyYesCost"`
	BestBuyNoCost   *float64 `json:"bestBuyNoCost"`
	BestSellYesCost *float64 `json:"bestSellYesCost"`
	BestSellNoCost  *float64 `json:"bestSellNoCost"`
	LastClosePrice  *float64 `json:"lastClosePrice"`
	DisplayOrder    int      `json:"displayOrder"`
}

// Normalize converts a PredictIt market into the common domain shape.
// PredictIt prices already live in probability space, so they pass through
// unchanged. Single-contract markets are inherently binary questions, so
// they emit a synthesized YES/NO pair from the contract's yes- and no-side
// quotes; multi-contract markets emit one contract per listed outcome.
func (m *APIMarket) Normalize() domain.Market {
	marketID := strconv.FormatInt(m.ID, 10)
	name := m.Name
	if name == "" {
		name = marketID
	}

	status := domain.MarketStatusClosed
	if m.Status == "Open" {
		status = domain.MarketStatusActive
	}

	var contracts []domain.Contract
	if len(m.Contracts) == 1 {
		contracts = synthesizeBinaryPair(marketID, m.Contracts[0])
	} else {
		outcomeType := domain.OutcomeMulti
		if len(m.Contracts) <= 2 {
			outcomeType = domain.OutcomeBinary
		}
		contracts = make([]domain.Contract, 0, len(m.Contracts))
		for _, c := range m.Contracts {
			cid := strconv.FormatInt(c.ID, 10)
			label := c.Name
			if label == "" {
				label = cid
			}
			contracts = append(contracts, domain.Contract{
				Source:      Source,
				MarketID:    marketID,
				ContractID:  cid,
				Name:        label,
				Side:        label,
				OutcomeType: outcomeType,
				Bid:         c.BestSellYesCost,
				Ask:         c.BestBuyYesCost,
				LastPrice:   c.LastTradePrice,
			})
		}
	}

	return domain.Market{
		Source:    Source,
		MarketID:  marketID,
		Name:      name,
		Category:  m.ShortName,
		EventTime: m.TimeStamp,
		URL:       m.URL,
		Status:    status,
		Contracts: contracts,
	}
}

// synthesizeBinaryPair expands a lone contract into explicit YES and NO legs
// so the hedge evaluator sees both sides of the book.
func synthesizeBinaryPair(marketID string, c APIContract) []domain.Contract {
	cid := strconv.FormatInt(c.ID, 10)
	yes := domain.Contract{
		Source:      Source,
		MarketID:    marketID,
		ContractID:  cid + "_YES",
		Name:        "YES",
		Side:        "YES",
		OutcomeType: domain.OutcomeBinary,
		Bid:         c.BestSellYesCost,
		Ask:         c.BestBuyYesCost,
		LastPrice:   c.LastTradePrice,
	}
	no := domain.Contract{
		Source:      Source,
		MarketID:    marketID,
		ContractID:  cid + "_NO",
		Name:        "NO",
		Side:        "NO",
		OutcomeType: domain.OutcomeBinary,
		Bid:         c.BestSellNoCost,
		Ask:         c.BestBuyNoCost,
	}
	return []domain.Contract{yes, no}
}
