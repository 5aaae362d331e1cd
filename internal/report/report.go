// Package report renders CLI tables for one-shot run modes. Output is purely
// presentational; nothing reads it back.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// maxRows caps table length so a large run stays readable on a terminal.
const maxRows = 25

// Matches renders a matching run's pairs, highest similarity first.
func Matches(w io.Writer, pairs []domain.MatchedPair) {
	if len(pairs) == 0 {
		fmt.Fprintln(w, "no matches found")
		return
	}

	sorted := make([]domain.MatchedPair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SimilarityScore > sorted[j].SimilarityScore })

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Market A", "Market B", "Score", "Classifier", "Confirmed"})
	table.SetAutoWrapText(false)

	for i, p := range sorted {
		if i == maxRows {
			break
		}
		prob := "-"
		if p.ClassifierProb != nil {
			prob = fmt.Sprintf("%.3f", *p.ClassifierProb)
		}
		confirmed := ""
		if p.IsManualConfirmed {
			confirmed = "yes (" + p.ConfirmedBy + ")"
		}
		table.Append([]string{
			fmt.Sprintf("%d", p.ID),
			p.SourceA + "/" + p.MarketIDA,
			p.SourceB + "/" + p.MarketIDB,
			fmt.Sprintf("%.3f", p.SimilarityScore),
			prob,
			confirmed,
		})
	}
	table.Render()

	if len(sorted) > maxRows {
		fmt.Fprintf(w, "... and %d more\n", len(sorted)-maxRows)
	}
}

// Opportunities renders a scan's output, best profit first. The detector
// already sorts by min profit descending.
func Opportunities(w io.Writer, opps []domain.ArbitrageOpportunity) {
	if len(opps) == 0 {
		fmt.Fprintln(w, "no opportunities found")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Type", "YES Leg", "NO Leg", "Cost", "Profit", "ROI %", "Similarity"})
	table.SetAutoWrapText(false)

	for i, o := range opps {
		if i == maxRows {
			break
		}
		table.Append([]string{
			string(o.Type),
			fmt.Sprintf("%s/%s @ %.2f", o.YesLeg.Source, o.YesLeg.MarketID, o.YesLeg.Price),
			fmt.Sprintf("%s/%s @ %.2f", o.NoLeg.Source, o.NoLeg.MarketID, o.NoLeg.Price),
			fmt.Sprintf("%.3f", o.TotalInvestment),
			fmt.Sprintf("%.3f", o.MinProfit),
			fmt.Sprintf("%.2f", o.ROIPercent),
			fmt.Sprintf("%.3f", o.Similarity),
		})
	}
	table.Render()

	if len(opps) > maxRows {
		fmt.Fprintf(w, "... and %d more\n", len(opps)-maxRows)
	}
}

// SyncCounts renders per-venue market counts after a sync run.
func SyncCounts(w io.Writer, bySource map[string]int, failed []string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Venue", "Markets"})

	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		table.Append([]string{source, fmt.Sprintf("%d", bySource[source])})
	}
	for _, source := range failed {
		table.Append([]string{source, "FAILED"})
	}
	table.Render()
}

// FeatureImportance renders the trained classifier's feature weights,
// largest share first.
func FeatureImportance(w io.Writer, importance map[string]float64) {
	names := make([]string, 0, len(importance))
	for name := range importance {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if importance[names[i]] != importance[names[j]] {
			return importance[names[i]] > importance[names[j]]
		}
		return names[i] < names[j]
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Feature", "Importance"})
	for _, name := range names {
		table.Append([]string{name, fmt.Sprintf("%.3f", importance[name])})
	}
	table.Render()
}
