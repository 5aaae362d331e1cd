package arbitrage

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// FormatOpportunity renders one opportunity as a short multi-line block for
// alerts and console output.
func FormatOpportunity(o domain.ArbitrageOpportunity) string {
	lines := []string{
		fmt.Sprintf("%s/%s <-> %s/%s",
			strings.ToUpper(o.SourceA), o.MarketIDA,
			strings.ToUpper(o.SourceB), o.MarketIDB),
		fmt.Sprintf("Type: %s | Match Quality: %.1f%%", strings.ToUpper(string(o.Type)), o.Similarity*100),
		fmt.Sprintf("Min Profit: $%.2f | Max Profit: $%.2f", o.MinProfit, o.MaxProfit),
		fmt.Sprintf("ROI: %.2f%% | Investment: $%.2f", o.ROIPercent, o.TotalInvestment),
	}

	switch o.Category() {
	case "arbitrage":
		lines = append(lines, "ARBITRAGE (risk-free profit opportunity)")
	case "scalp":
		lines = append(lines, "SCALP (conditional profit opportunity)")
	default:
		lines = append(lines, "HEDGE (risk mitigation, no profit guaranteed)")
	}

	if o.Notes != "" {
		lines = append(lines, "Notes: "+o.Notes)
	}
	return strings.Join(lines, "\n")
}

// Summarize groups opportunities into arbitrage/scalp/hedge buckets and
// reports the top three of each. Presentation only; nothing decides on it.
func Summarize(opps []domain.ArbitrageOpportunity) string {
	if len(opps) == 0 {
		return "No arbitrage opportunities found."
	}

	var arbs, scalps, hedges []domain.ArbitrageOpportunity
	for _, o := range opps {
		switch o.Category() {
		case "arbitrage":
			arbs = append(arbs, o)
		case "scalp":
			scalps = append(scalps, o)
		default:
			hedges = append(hedges, o)
		}
	}

	lines := []string{fmt.Sprintf("Found %d arbitrage opportunities:", len(opps)), ""}

	if len(arbs) > 0 {
		lines = append(lines, fmt.Sprintf("%d ARBITRAGE (risk-free profit):", len(arbs)))
		for _, o := range top3(arbs) {
			lines = append(lines, fmt.Sprintf("  - Min profit: $%.2f (%.1f%% ROI)", o.MinProfit, o.ROIPercent))
		}
	}
	if len(scalps) > 0 {
		lines = append(lines, fmt.Sprintf("%d SCALP (conditional profit):", len(scalps)))
		for _, o := range top3(scalps) {
			lines = append(lines, fmt.Sprintf("  - Min profit: $%.2f (%.1f%% ROI)", o.MinProfit, o.ROIPercent))
		}
	}
	if len(hedges) > 0 {
		lines = append(lines, fmt.Sprintf("%d HEDGE (risk mitigation):", len(hedges)))
		for _, o := range top3(hedges) {
			lines = append(lines, fmt.Sprintf("  - Expected: $%.2f", o.MinProfit))
		}
	}

	return strings.Join(lines, "\n")
}

func top3(opps []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	if len(opps) > 3 {
		return opps[:3]
	}
	return opps
}
