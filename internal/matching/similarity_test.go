package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.NoError(t, Weights{Name: 0.25, Category: 0.25, Structure: 0.25, Temporal: 0.25}.Validate())
	// Inside tolerance.
	assert.NoError(t, Weights{Name: 0.4, Category: 0.2, Structure: 0.3, Temporal: 0.105}.Validate())

	err := Weights{Name: 0.5, Category: 0.2, Structure: 0.3, Temporal: 0.1}.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

func TestCategorySimilarity(t *testing.T) {
	// --- exact, case-insensitive ---
	assert.InDelta(t, 1.0, categorySimilarity("Crypto", "crypto"), 1e-9)

	// --- containment either direction ---
	assert.InDelta(t, 0.7, categorySimilarity("Crypto", "Cryptocurrency"), 1e-9)
	assert.InDelta(t, 0.7, categorySimilarity("US Politics", "Politics"), 1e-9)

	// --- disjoint ---
	assert.InDelta(t, 0.0, categorySimilarity("Politics", "Crypto"), 1e-9)

	// --- missing is neutral, not a mismatch ---
	assert.InDelta(t, 0.5, categorySimilarity("", "Crypto"), 1e-9)
	assert.InDelta(t, 0.5, categorySimilarity("Crypto", "   "), 1e-9)
	assert.InDelta(t, 0.5, categorySimilarity("", ""), 1e-9)
}

func TestStructureSimilarity(t *testing.T) {
	binary2 := domain.Market{Contracts: binaryContracts("kalshi", "m1", "YES", "NO")}
	binary2b := domain.Market{Contracts: binaryContracts("polymarket", "m2", "Yes", "No")}

	multi3 := domain.Market{Contracts: []domain.Contract{
		{ContractID: "a", Name: "Candidate A", OutcomeType: domain.OutcomeMulti},
		{ContractID: "b", Name: "Candidate B", OutcomeType: domain.OutcomeMulti},
		{ContractID: "c", Name: "Candidate C", OutcomeType: domain.OutcomeMulti},
	}}

	// --- same shape ---
	assert.InDelta(t, 1.0, structureSimilarity(binary2, binary2b), 1e-9)

	// --- different type and count: jaccard 0, count closeness 2/3 ---
	assert.InDelta(t, 0.4*(2.0/3.0), structureSimilarity(binary2, multi3), 1e-9)

	// --- no contracts on either side ---
	assert.InDelta(t, 0.0, structureSimilarity(domain.Market{}, binary2), 1e-9)
	assert.InDelta(t, 0.0, structureSimilarity(binary2, domain.Market{}), 1e-9)
}

func TestTemporalSimilarity(t *testing.T) {
	const window = 7

	// --- same calendar day, any clock time ---
	assert.InDelta(t, 1.0, temporalSimilarity("2025-12-31T09:00:00Z", "2025-12-31T23:00:00Z", window), 1e-9)

	// --- linear decay inside the window ---
	assert.InDelta(t, 1.0-2.0/7.0, temporalSimilarity("2025-12-31", "2026-01-02", window), 1e-9)

	// --- at and beyond the window ---
	assert.InDelta(t, 0.0, temporalSimilarity("2025-12-01", "2025-12-08", window), 1e-9)
	assert.InDelta(t, 0.0, temporalSimilarity("2025-12-01", "2025-12-25", window), 1e-9)

	// --- missing or unparseable on either side is neutral ---
	assert.InDelta(t, 0.5, temporalSimilarity("", "2025-12-31", window), 1e-9)
	assert.InDelta(t, 0.5, temporalSimilarity("2025-12-31", "soon", window), 1e-9)
}
