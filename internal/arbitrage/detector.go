// Package arbitrage evaluates matched market pairs for cross-venue hedge
// opportunities on binary markets: buy the cheaper YES leg on one venue and
// the cheaper NO leg on the other, and the position pays exactly 1.0 per
// unit whichever way the event resolves.
package arbitrage

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// arbTolerance absorbs float rounding when classifying a hedge as risk-free.
const arbTolerance = 0.001

// Config configures a Detector.
type Config struct {
	// MinSimilarity is the pair similarity floor advertised to callers
	// assembling the input set. Detection itself does not re-filter: pairs
	// handed to DetectOpportunities are assumed already screened.
	MinSimilarity float64
	// MinProfitThreshold discards hedges returning less than this per unit.
	MinProfitThreshold float64
}

// DefaultConfig mirrors the settings used by the scheduled scan run.
func DefaultConfig() Config {
	return Config{
		MinSimilarity:      0.70,
		MinProfitThreshold: 0.01,
	}
}

// Detector owns a registry of current market snapshots and evaluates matched
// pairs against it. Registration mutates the registry, so callers sharing a
// Detector serialize RegisterMarkets against detection calls.
type Detector struct {
	cfg      Config
	registry map[domain.MarketKey]domain.Market
	logger   *slog.Logger
}

// NewDetector creates a detector with an empty registry.
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	return &Detector{
		cfg:      cfg,
		registry: make(map[domain.MarketKey]domain.Market),
		logger:   logger.With(slog.String("component", "arb_detector")),
	}
}

// MinSimilarity returns the configured pair similarity floor.
func (d *Detector) MinSimilarity() float64 { return d.cfg.MinSimilarity }

// RegisterMarkets indexes markets by (source, market_id), overwriting any
// prior snapshot for the same key. Re-registering is idempotent.
func (d *Detector) RegisterMarkets(markets []domain.Market) {
	for _, m := range markets {
		d.registry[m.Key()] = m
	}
}

// RegisteredMarkets reports the registry size.
func (d *Detector) RegisteredMarkets() int { return len(d.registry) }

// DetectOpportunities evaluates each matched pair against the registry and
// returns at most one opportunity per pair, sorted by descending minimum
// profit. Pairs referencing unregistered markets, non-binary markets, or
// incomplete quotes are skipped silently; bad market data is routine, not an
// error.
func (d *Detector) DetectOpportunities(pairs []domain.MatchedPair) []domain.ArbitrageOpportunity {
	var opps []domain.ArbitrageOpportunity
	for _, pair := range pairs {
		if opp, ok := d.evaluatePair(pair); ok {
			opps = append(opps, opp)
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].MinProfit > opps[j].MinProfit
	})

	d.logger.Debug("scan complete",
		slog.Int("pairs", len(pairs)),
		slog.Int("opportunities", len(opps)),
	)
	return opps
}

// BestOpportunities returns the top opportunities by minimum profit.
func (d *Detector) BestOpportunities(pairs []domain.MatchedPair, limit int) []domain.ArbitrageOpportunity {
	opps := d.DetectOpportunities(pairs)
	if limit > 0 && len(opps) > limit {
		opps = opps[:limit]
	}
	return opps
}

func (d *Detector) evaluatePair(pair domain.MatchedPair) (domain.ArbitrageOpportunity, bool) {
	marketA, okA := d.registry[pair.KeyA()]
	marketB, okB := d.registry[pair.KeyB()]
	if !okA || !okB {
		return domain.ArbitrageOpportunity{}, false
	}

	yesA, noA, okA := binaryContracts(marketA)
	yesB, noB, okB := binaryContracts(marketB)
	if !okA || !okB {
		return domain.ArbitrageOpportunity{}, false
	}

	yesAPrice, ok1 := yesA.EffectivePrice()
	noAPrice, ok2 := noA.EffectivePrice()
	yesBPrice, ok3 := yesB.EffectivePrice()
	noBPrice, ok4 := noB.EffectivePrice()
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return domain.ArbitrageOpportunity{}, false
	}
	for _, p := range []float64{yesAPrice, noAPrice, yesBPrice, noBPrice} {
		if p < 0 || p > 1 {
			return domain.ArbitrageOpportunity{}, false
		}
	}

	// Cheaper leg on each side, chosen independently; ties favor market A.
	yesLeg := leg(marketA, yesA, yesAPrice)
	if yesBPrice < yesAPrice {
		yesLeg = leg(marketB, yesB, yesBPrice)
	}
	noLeg := leg(marketA, noA, noAPrice)
	if noBPrice < noAPrice {
		noLeg = leg(marketB, noB, noBPrice)
	}

	investment := yesLeg.Price + noLeg.Price
	// A complete hedge returns exactly 1.0 per unit whichever outcome
	// resolves, so profit is the same under both branches. Intentional
	// simplification: no directional sizing yet.
	profit := 1.0 - investment

	if profit < d.cfg.MinProfitThreshold {
		return domain.ArbitrageOpportunity{}, false
	}

	roi := 0.0
	if investment > 0 {
		roi = profit / investment * 100
	}
	isArb := profit > arbTolerance

	oppType := domain.OpportunityHedge
	if isArb {
		oppType = domain.OpportunityBothSides
	}

	opp := domain.ArbitrageOpportunity{
		ID:              uuid.Must(uuid.NewRandom()).String(),
		SourceA:         pair.SourceA,
		MarketIDA:       pair.MarketIDA,
		MarketNameA:     marketA.Name,
		SourceB:         pair.SourceB,
		MarketIDB:       pair.MarketIDB,
		MarketNameB:     marketB.Name,
		YesLeg:          yesLeg,
		NoLeg:           noLeg,
		TotalInvestment: investment,
		ProfitIfYes:     profit,
		ProfitIfNo:      profit,
		MinProfit:       profit,
		MaxProfit:       profit,
		ROIPercent:      roi,
		BreakEvenSpread: investment - 1.0,
		Similarity:      pair.SimilarityScore,
		IsArbitrage:     isArb,
		IsScalp:         false,
		Type:            oppType,
		Notes: fmt.Sprintf("Buy YES at %s ($%.4f), NO at %s ($%.4f)",
			yesLeg.Source, yesLeg.Price, noLeg.Source, noLeg.Price),
		DetectedAt: time.Now().UTC(),
	}
	if pair.ID != 0 {
		id := pair.ID
		opp.MatchedPairID = &id
	}
	return opp, true
}

func leg(m domain.Market, c domain.Contract, price float64) domain.OpportunityLeg {
	return domain.OpportunityLeg{
		Source:     m.Source,
		MarketID:   m.MarketID,
		ContractID: c.ContractID,
		Side:       c.Side,
		Price:      price,
	}
}

// binaryContracts qualifies a market as binary and extracts its YES and NO
// contracts. Qualification needs at least two contracts with outcome type
// exactly "binary" and a side of exactly "YES" or "NO". Extraction then
// matches sides case-insensitively across all contracts; with duplicate
// sides the last contract seen wins. Venue normalization should not produce
// duplicates, but the data is not trusted to guarantee it.
func binaryContracts(m domain.Market) (yes, no domain.Contract, ok bool) {
	qualified := 0
	for _, c := range m.Contracts {
		if c.OutcomeType == domain.OutcomeBinary && (c.Side == "YES" || c.Side == "NO") {
			qualified++
		}
	}
	if qualified < 2 {
		return domain.Contract{}, domain.Contract{}, false
	}

	var haveYes, haveNo bool
	for _, c := range m.Contracts {
		switch strings.ToUpper(c.Side) {
		case "YES":
			yes = c
			haveYes = true
		case "NO":
			no = c
			haveNo = true
		}
	}
	return yes, no, haveYes && haveNo
}
