package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/classifier"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
	"github.com/alanyoungcy/crossarb/internal/report"
	"github.com/alanyoungcy/crossarb/internal/server"
	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
	"github.com/alanyoungcy/crossarb/internal/service"
)

// services bundles the composed service layer shared by all run modes.
type services struct {
	markets  *service.MarketService
	match    *service.MatchService
	scan     *service.ScanService
	training *service.TrainingService
	model    *classifier.Classifier
}

// buildServices composes the service layer from wired dependencies and the
// matcher, classifier, and detector configured for this run.
func (a *App) buildServices(ctx context.Context, deps *Dependencies) (*services, error) {
	matcher, err := matching.New(matching.Config{
		Weights: matching.Weights{
			Name:      a.cfg.Matcher.NameWeight,
			Category:  a.cfg.Matcher.CategoryWeight,
			Structure: a.cfg.Matcher.StructureWeight,
			Temporal:  a.cfg.Matcher.TemporalWeight,
		},
		MinScoreThreshold:  a.cfg.Matcher.MinScore,
		TemporalWindowDays: a.cfg.Matcher.TemporalWindowDays,
		CrossSourceOnly:    a.cfg.Matcher.CrossSourceOnly,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("app: build matcher: %w", err)
	}

	detector := arbitrage.NewDetector(arbitrage.Config{
		MinSimilarity:      a.cfg.Detector.MinSimilarity,
		MinProfitThreshold: a.cfg.Detector.MinProfit,
	}, a.logger)

	model := classifier.New(a.logger)
	if _, err := os.Stat(a.cfg.Classifier.ModelPath); err == nil {
		if err := model.Load(a.cfg.Classifier.ModelPath); err != nil {
			a.logger.WarnContext(ctx, "app: stored model unusable, continuing untrained",
				slog.String("path", a.cfg.Classifier.ModelPath),
				slog.String("error", err.Error()),
			)
		}
	}

	var matchModel *classifier.Classifier
	if a.cfg.Classifier.UseInMatch {
		matchModel = model
	}

	var archiver service.ReportArchiver
	var modelArchiver service.ModelArchiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
		modelArchiver = deps.Archiver
	}

	return &services{
		markets: service.NewMarketService(deps.Venues, deps.MarketStore, deps.MarketCache, deps.SignalBus, a.cfg.Sync.Limit, a.logger),
		match:   service.NewMatchService(deps.MarketStore, deps.MatchedPairStore, matcher, matchModel, deps.SignalBus, a.logger),
		scan: service.NewScanService(
			deps.MarketStore, deps.MatchedPairStore, deps.OpportunityStore,
			detector, deps.LockManager, deps.SignalBus, deps.Notifier, archiver,
			service.ScanConfig{
				LockTTL:      a.cfg.Scan.LockTTL.Duration,
				NotifyMinROI: a.cfg.Scan.NotifyMinROI,
			}, a.logger),
		training: service.NewTrainingService(
			deps.MarketStore, deps.MatchedPairStore, model, modelArchiver, deps.Notifier,
			service.TrainingConfig{
				ModelPath:     a.cfg.Classifier.ModelPath,
				NegativeRatio: a.cfg.Classifier.NegativeRatio,
				Seed:          a.cfg.Classifier.Seed,
			}, a.logger),
		model: model,
	}, nil
}

// SyncMode fetches every enabled venue once and persists the markets.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	result, err := svcs.markets.SyncAll(ctx)
	if err != nil {
		return err
	}
	report.SyncCounts(os.Stdout, result.BySource, result.Failed)
	return nil
}

// MatchMode runs one matching pass over stored markets and prints the pairs.
func (a *App) MatchMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	result, err := svcs.match.RunMatching(ctx)
	if err != nil {
		return err
	}
	report.Matches(os.Stdout, result.Pairs)
	return nil
}

// ScanMode runs one arbitrage scan over stored pairs and prints the result.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	summary, err := svcs.scan.Run(ctx)
	if err != nil {
		return err
	}
	report.Opportunities(os.Stdout, summary.Opportunities)
	fmt.Println(arbitrage.Summarize(summary.Opportunities))
	return nil
}

// TrainMode trains the classifier from confirmed pairs and saves the model.
func (a *App) TrainMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	result, err := svcs.training.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("trained on %d positives / %d negatives: accuracy %.3f, AUC-ROC %.3f\n",
		result.Positives, result.Negatives, result.Metrics.Accuracy, result.Metrics.AUCROC)
	report.FeatureImportance(os.Stdout, result.Importance)
	fmt.Printf("model saved to %s\n", result.ModelPath)
	if result.SnapshotPath != "" {
		fmt.Printf("snapshot archived to %s\n", result.SnapshotPath)
	}
	return nil
}

// ServeMode runs the dashboard HTTP server and websocket hub until the
// context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps, svcs)
	return g.Wait()
}

// FullMode runs the periodic sync → match → scan pipeline with the dashboard
// served concurrently.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, svcs)
	}
	g.Go(func() error {
		return a.runPipeline(ctx, svcs)
	})
	return g.Wait()
}

// startServer registers the dashboard server and hub on the group.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	hub := ws.NewHub(deps.SignalBus, []string{
		service.ChannelSync,
		service.ChannelMatches,
		service.ChannelScans,
		service.ChannelOpportunities,
	}, a.cfg.Mode, a.logger)

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.ApiKey,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Stats:         handler.NewStatsHandler(svcs.match, svcs.markets, svcs.scan, a.logger),
		Markets:       handler.NewMarketHandler(svcs.markets, a.logger),
		Pairs:         handler.NewPairHandler(svcs.match, a.logger),
		Opportunities: handler.NewOpportunityHandler(svcs.scan, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// runPipeline drives the sync+match cycle and the scan cycle on their own
// tickers. The first cycle runs immediately so a fresh deployment produces
// data without waiting a full interval.
func (a *App) runPipeline(ctx context.Context, svcs *services) error {
	a.cycleSync(ctx, svcs)
	a.cycleScan(ctx, svcs)

	syncTicker := time.NewTicker(a.cfg.Sync.Interval.Duration)
	defer syncTicker.Stop()
	scanTicker := time.NewTicker(a.cfg.Scan.Interval.Duration)
	defer scanTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-syncTicker.C:
			a.cycleSync(ctx, svcs)
		case <-scanTicker.C:
			a.cycleScan(ctx, svcs)
		}
	}
}

// cycleSync refreshes markets and re-matches. Failures are logged, not
// fatal: the next tick retries with whatever state storage holds.
func (a *App) cycleSync(ctx context.Context, svcs *services) {
	if _, err := svcs.markets.SyncAll(ctx); err != nil {
		a.logger.ErrorContext(ctx, "app: sync cycle failed", slog.String("error", err.Error()))
		return
	}
	if _, err := svcs.match.RunMatching(ctx); err != nil {
		a.logger.ErrorContext(ctx, "app: match cycle failed", slog.String("error", err.Error()))
	}
}

// cycleScan evaluates stored pairs. A held lock means another process is
// scanning, which is routine, not an error.
func (a *App) cycleScan(ctx context.Context, svcs *services) {
	if _, err := svcs.scan.Run(ctx); err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "app: scan skipped, lock held elsewhere")
			return
		}
		a.logger.ErrorContext(ctx, "app: scan cycle failed", slog.String("error", err.Error()))
	}
}
