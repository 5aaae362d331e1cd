package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Source is the venue tag attached to every normalized Polymarket market.
const Source = "polymarket"

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexStrings unmarshals from a JSON array of strings or from a JSON string
// that itself encodes such an array. Gamma sends outcomes and outcomePrices
// in both shapes, e.g. ["Yes","No"] and "[\"Yes\",\"No\"]".
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = nil
		return nil
	}
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return fmt.Errorf("polymarket: nested string array: %w", err)
	}
	*f = arr
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string      `json:"id"`
	Question      string      `json:"question"`
	Slug          string      `json:"slug"`
	Category      string      `json:"category"`
	Active        flexBool    `json:"active"` // API may send bool or "true"/"false" string
	Closed        bool        `json:"closed"`
	Outcomes      flexStrings `json:"outcomes"`
	OutcomePrices flexStrings `json:"outcomePrices"`
	Volume        string      `json:"volume"`
	EndDate       string      `json:"endDate"`
	ClosesAt      string      `json:"closesAt"`
	Description   string      `json:"description"`
	CreatedAt     string      `json:"createdAt"`
	UpdatedAt     string      `json:"updatedAt"`
}

// Normalize converts a Gamma market into the common domain shape. The market
// id prefers the slug over the numeric id, outcome prices are AMM mid prices
// in probability space and serve as both ask and last, and the outcome type
// is binary exactly when the market lists two outcomes.
func (m *APIMarket) Normalize() domain.Market {
	marketID := m.Slug
	if marketID == "" {
		marketID = m.ID
	}
	if marketID == "" {
		marketID = "unknown"
	}
	name := m.Question
	if name == "" {
		name = marketID
	}
	eventTime := m.EndDate
	if eventTime == "" {
		eventTime = m.ClosesAt
	}

	outcomeType := domain.OutcomeMulti
	if len(m.Outcomes) == 2 {
		outcomeType = domain.OutcomeBinary
	}

	var volume *float64
	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		volume = &v
	}

	contracts := make([]domain.Contract, 0, len(m.Outcomes))
	for i, outcome := range m.Outcomes {
		var price *float64
		if i < len(m.OutcomePrices) {
			if p, err := strconv.ParseFloat(m.OutcomePrices[i], 64); err == nil {
				price = &p
			}
		}
		contracts = append(contracts, domain.Contract{
			Source:      Source,
			MarketID:    marketID,
			ContractID:  fmt.Sprintf("%s_%s", marketID, outcome),
			Name:        outcome,
			Side:        outcome,
			OutcomeType: outcomeType,
			Ask:         price,
			LastPrice:   price,
			Volume:      volume,
		})
	}

	url := ""
	if m.Slug != "" {
		url = "https://polymarket.com/event/" + m.Slug
	}

	status := domain.MarketStatusSettled
	if m.Closed {
		status = domain.MarketStatusClosed
	} else if bool(m.Active) {
		status = domain.MarketStatusActive
	}

	return domain.Market{
		Source:    Source,
		MarketID:  marketID,
		Name:      name,
		Category:  m.Category,
		EventTime: eventTime,
		URL:       url,
		Status:    status,
		Contracts: contracts,
	}
}
