package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/blob/s3"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/notify"
)

// scanLockKey serializes scan cycles across processes sharing one Redis.
const scanLockKey = "scan"

// ReportArchiver uploads one scan's opportunities for later analysis.
// *s3blob.Archiver satisfies it.
type ReportArchiver interface {
	ArchiveScanReport(ctx context.Context, header s3blob.ScanReportHeader, opps []domain.ArbitrageOpportunity) (string, error)
}

// Alerter delivers operator notifications. *notify.Notifier satisfies it.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ScanConfig holds the tunable parameters for scan runs.
type ScanConfig struct {
	// LockTTL bounds how long a crashed scan can block the next one.
	LockTTL time.Duration
	// NotifyMinROI suppresses operator alerts for opportunities below this
	// ROI percentage.
	NotifyMinROI float64
}

// ScanService evaluates stored matched pairs against current market
// snapshots and records the opportunities it finds.
type ScanService struct {
	markets  domain.MarketStore
	pairs    domain.MatchedPairStore
	opps     domain.OpportunityStore
	detector *arbitrage.Detector
	locks    domain.LockManager
	bus      domain.SignalBus
	alerter  Alerter
	archiver ReportArchiver
	cfg      ScanConfig
	logger   *slog.Logger

	// detectorMu serializes access to the detector's market registry. The
	// detector leaves synchronization to its caller, and this service is
	// called from both the scan loop and concurrent dashboard requests.
	detectorMu sync.Mutex
}

// NewScanService creates a ScanService. locks, bus, alerter, and archiver may
// each be nil; the corresponding step is skipped.
func NewScanService(
	markets domain.MarketStore,
	pairs domain.MatchedPairStore,
	opps domain.OpportunityStore,
	detector *arbitrage.Detector,
	locks domain.LockManager,
	bus domain.SignalBus,
	alerter Alerter,
	archiver ReportArchiver,
	cfg ScanConfig,
	logger *slog.Logger,
) *ScanService {
	return &ScanService{
		markets:  markets,
		pairs:    pairs,
		opps:     opps,
		detector: detector,
		locks:    locks,
		bus:      bus,
		alerter:  alerter,
		archiver: archiver,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scan_service")),
	}
}

// ScanSummary describes one completed scan.
type ScanSummary struct {
	ScanID            string
	StartedAt         time.Time
	Duration          time.Duration
	PairsScanned      int
	MarketsRegistered int
	Opportunities     []domain.ArbitrageOpportunity
	ArbitrageCount    int
	BestROI           float64
	ReportPath        string
}

// Run executes one scan cycle: load eligible pairs and market snapshots,
// evaluate, persist, alert, archive. Returns domain.ErrLockHeld (wrapped)
// when another process is already scanning.
func (s *ScanService) Run(ctx context.Context) (ScanSummary, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, scanLockKey, s.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return ScanSummary{}, fmt.Errorf("scan_service: %w", domain.ErrLockHeld)
			}
			return ScanSummary{}, fmt.Errorf("scan_service: acquire lock: %w", err)
		}
		defer unlock()
	}

	summary, err := s.scan(ctx)
	if err != nil {
		s.alert(ctx, notify.EventScanFailed, "Scan failed", err.Error())
		return summary, err
	}
	return summary, nil
}

func (s *ScanService) scan(ctx context.Context) (ScanSummary, error) {
	summary := ScanSummary{
		ScanID:    uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}

	pairs, err := s.eligiblePairs(ctx)
	if err != nil {
		return summary, err
	}
	summary.PairsScanned = len(pairs)

	markets, err := s.markets.ListAll(ctx, domain.ListOpts{})
	if err != nil {
		return summary, fmt.Errorf("scan_service: load markets: %w", err)
	}
	s.detectorMu.Lock()
	s.detector.RegisterMarkets(markets)
	summary.MarketsRegistered = s.detector.RegisteredMarkets()
	opps := s.detector.DetectOpportunities(pairs)
	s.detectorMu.Unlock()
	summary.Opportunities = opps
	summary.Duration = time.Since(summary.StartedAt)
	for _, opp := range opps {
		if opp.IsArbitrage {
			summary.ArbitrageCount++
		}
		if opp.ROIPercent > summary.BestROI {
			summary.BestROI = opp.ROIPercent
		}
	}

	if len(opps) > 0 {
		if err := s.opps.InsertBatch(ctx, opps); err != nil {
			return summary, fmt.Errorf("scan_service: persist opportunities: %w", err)
		}
	}

	s.notifyOpportunities(ctx, opps)
	s.archiveReport(ctx, &summary)
	s.publishScanEvents(ctx, summary)

	s.logger.InfoContext(ctx, "scan_service: scan complete",
		slog.String("scan_id", summary.ScanID),
		slog.Int("pairs", summary.PairsScanned),
		slog.Int("markets", summary.MarketsRegistered),
		slog.Int("opportunities", len(opps)),
		slog.Int("arbitrage", summary.ArbitrageCount),
		slog.Duration("took", summary.Duration),
	)
	return summary, nil
}

// eligiblePairs returns manually confirmed pairs plus unconfirmed ones at or
// above the detector's similarity floor, deduplicated by ID.
func (s *ScanService) eligiblePairs(ctx context.Context) ([]domain.MatchedPair, error) {
	confirmed, err := s.pairs.List(ctx, domain.PairFilter{ConfirmedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("scan_service: load confirmed pairs: %w", err)
	}

	scored, err := s.pairs.List(ctx, domain.PairFilter{MinSimilarity: s.detector.MinSimilarity()})
	if err != nil {
		return nil, fmt.Errorf("scan_service: load scored pairs: %w", err)
	}

	seen := make(map[int64]bool, len(confirmed)+len(scored))
	pairs := make([]domain.MatchedPair, 0, len(confirmed)+len(scored))
	for _, p := range confirmed {
		seen[p.ID] = true
		pairs = append(pairs, p)
	}
	for _, p := range scored {
		if !seen[p.ID] {
			pairs = append(pairs, p)
		}
	}
	return pairs, nil
}

func (s *ScanService) notifyOpportunities(ctx context.Context, opps []domain.ArbitrageOpportunity) {
	if s.alerter == nil {
		return
	}
	for _, opp := range opps {
		if !opp.IsArbitrage || opp.ROIPercent < s.cfg.NotifyMinROI {
			continue
		}
		title := fmt.Sprintf("Arbitrage: %.2f%% ROI", opp.ROIPercent)
		s.alert(ctx, notify.EventOpportunityFound, title, arbitrage.FormatOpportunity(opp))
	}
}

func (s *ScanService) alert(ctx context.Context, event, title, message string) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "scan_service: notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ScanService) archiveReport(ctx context.Context, summary *ScanSummary) {
	if s.archiver == nil {
		return
	}
	path, err := s.archiver.ArchiveScanReport(ctx, s3blob.ScanReportHeader{
		ScanID:       summary.ScanID,
		StartedAt:    summary.StartedAt,
		PairsScanned: summary.PairsScanned,
	}, summary.Opportunities)
	if err != nil {
		s.logger.WarnContext(ctx, "scan_service: archive report failed",
			slog.String("scan_id", summary.ScanID),
			slog.String("error", err.Error()),
		)
		return
	}
	summary.ReportPath = path
}

func (s *ScanService) publishScanEvents(ctx context.Context, summary ScanSummary) {
	if s.bus == nil {
		return
	}

	for _, opp := range summary.Opportunities {
		evt, _ := json.Marshal(map[string]any{
			"event":       "opportunity_found",
			"id":          opp.ID,
			"market_a":    opp.MarketNameA,
			"market_b":    opp.MarketNameB,
			"min_profit":  opp.MinProfit,
			"roi_percent": opp.ROIPercent,
			"arbitrage":   opp.IsArbitrage,
			"notes":       opp.Notes,
		})
		if err := s.bus.Publish(ctx, ChannelOpportunities, evt); err != nil {
			s.logger.WarnContext(ctx, "scan_service: publish opportunity failed",
				slog.String("error", err.Error()),
			)
			break
		}
	}

	evt, _ := json.Marshal(map[string]any{
		"event":         "scan_completed",
		"scan_id":       summary.ScanID,
		"pairs":         summary.PairsScanned,
		"opportunities": len(summary.Opportunities),
		"arbitrage":     summary.ArbitrageCount,
		"best_roi":      summary.BestROI,
		"took_ms":       summary.Duration.Milliseconds(),
		"at":            summary.StartedAt.Format(time.RFC3339),
	})
	if err := s.bus.Publish(ctx, ChannelScans, evt); err != nil {
		s.logger.WarnContext(ctx, "scan_service: publish scan event failed",
			slog.String("error", err.Error()),
		)
	}
}

// Evaluate runs the detector over current stored pairs and markets without
// persisting, alerting, or locking. The dashboard's live opportunities
// endpoint uses it. minSimilarity 0 falls back to the detector's floor.
func (s *ScanService) Evaluate(ctx context.Context, minSimilarity float64) ([]domain.ArbitrageOpportunity, error) {
	if minSimilarity <= 0 {
		minSimilarity = s.detector.MinSimilarity()
	}
	pairs, err := s.pairs.List(ctx, domain.PairFilter{MinSimilarity: minSimilarity})
	if err != nil {
		return nil, fmt.Errorf("scan_service: load pairs: %w", err)
	}
	markets, err := s.markets.ListAll(ctx, domain.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("scan_service: load markets: %w", err)
	}
	s.detectorMu.Lock()
	defer s.detectorMu.Unlock()
	s.detector.RegisterMarkets(markets)
	return s.detector.DetectOpportunities(pairs), nil
}

// RecentOpportunities returns persisted scan history, newest first.
func (s *ScanService) RecentOpportunities(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	opps, err := s.opps.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("scan_service: list recent: %w", err)
	}
	return opps, nil
}

// CountOpportunitiesSince reports how many opportunities were detected at or
// after the given time.
func (s *ScanService) CountOpportunitiesSince(ctx context.Context, since time.Time) (int64, error) {
	count, err := s.opps.CountSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("scan_service: count since: %w", err)
	}
	return count, nil
}
