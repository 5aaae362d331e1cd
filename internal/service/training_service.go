package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/alanyoungcy/crossarb/internal/classifier"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/notify"
)

// ModelArchiver uploads a trained model snapshot to object storage.
// *s3blob.Archiver satisfies it.
type ModelArchiver interface {
	ArchiveModelSnapshot(ctx context.Context, snapshot []byte, trainedAt time.Time) (string, error)
}

// TrainingConfig holds the dataset-assembly and persistence parameters for
// classifier training runs.
type TrainingConfig struct {
	// ModelPath is where the trained model file is written.
	ModelPath string
	// NegativeRatio is the number of sampled negative pairs per positive.
	NegativeRatio int
	// Seed drives negative-pair sampling so a rerun over the same stored
	// data produces the same dataset.
	Seed int64
}

// TrainingService assembles a labeled dataset from stored pairs and markets,
// trains the match classifier, and persists the result.
type TrainingService struct {
	markets  domain.MarketStore
	pairs    domain.MatchedPairStore
	model    *classifier.Classifier
	archiver ModelArchiver
	alerter  Alerter
	cfg      TrainingConfig
	logger   *slog.Logger
}

// NewTrainingService creates a TrainingService. archiver and alerter may be
// nil; the corresponding step is skipped.
func NewTrainingService(
	markets domain.MarketStore,
	pairs domain.MatchedPairStore,
	model *classifier.Classifier,
	archiver ModelArchiver,
	alerter Alerter,
	cfg TrainingConfig,
	logger *slog.Logger,
) *TrainingService {
	if cfg.NegativeRatio < 1 {
		cfg.NegativeRatio = 1
	}
	return &TrainingService{
		markets:  markets,
		pairs:    pairs,
		model:    model,
		archiver: archiver,
		alerter:  alerter,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "training_service")),
	}
}

// TrainingResult summarizes one training run.
type TrainingResult struct {
	Positives    int
	Negatives    int
	Metrics      classifier.Metrics
	Importance   map[string]float64
	ModelPath    string
	SnapshotPath string
}

// Run builds the dataset, trains the classifier, saves the model file, and
// archives a snapshot. Manually confirmed pairs are the positive class;
// negatives are sampled cross-source pairings that were never matched.
func (s *TrainingService) Run(ctx context.Context) (TrainingResult, error) {
	positives, matched, err := s.positivePairs(ctx)
	if err != nil {
		return TrainingResult{}, err
	}
	if len(positives) == 0 {
		return TrainingResult{}, fmt.Errorf("training_service: no confirmed pairs to train on; confirm matches first")
	}

	negatives, err := s.sampleNegatives(ctx, matched, len(positives)*s.cfg.NegativeRatio)
	if err != nil {
		return TrainingResult{}, err
	}
	if len(negatives) == 0 {
		return TrainingResult{}, fmt.Errorf("training_service: could not sample any negative pairs")
	}

	metrics, err := s.model.Train(positives, negatives)
	if err != nil {
		return TrainingResult{}, fmt.Errorf("training_service: train: %w", err)
	}
	importance, err := s.model.FeatureImportance()
	if err != nil {
		return TrainingResult{}, fmt.Errorf("training_service: feature importance: %w", err)
	}

	result := TrainingResult{
		Positives:  len(positives),
		Negatives:  len(negatives),
		Metrics:    metrics,
		Importance: importance,
		ModelPath:  s.cfg.ModelPath,
	}

	if err := s.model.Save(s.cfg.ModelPath); err != nil {
		return result, fmt.Errorf("training_service: save model: %w", err)
	}

	result.SnapshotPath = s.archiveSnapshot(ctx)
	s.notifyTrained(ctx, result)

	s.logger.InfoContext(ctx, "training_service: training complete",
		slog.Int("positives", result.Positives),
		slog.Int("negatives", result.Negatives),
		slog.Float64("accuracy", metrics.Accuracy),
		slog.Float64("auc_roc", metrics.AUCROC),
		slog.String("model_path", result.ModelPath),
	)
	return result, nil
}

// positivePairs resolves every confirmed pair to its two stored markets.
// Pairs whose markets are no longer stored are skipped. The returned set
// holds the canonical keys of every stored pair, confirmed or not, so
// negative sampling can exclude anything the matcher ever linked.
func (s *TrainingService) positivePairs(ctx context.Context) ([]classifier.Pair, map[[2]domain.MarketKey]bool, error) {
	confirmed, err := s.pairs.List(ctx, domain.PairFilter{ConfirmedOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("training_service: load confirmed pairs: %w", err)
	}
	all, err := s.pairs.List(ctx, domain.PairFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("training_service: load pairs: %w", err)
	}

	matched := make(map[[2]domain.MarketKey]bool, len(all))
	for _, p := range all {
		matched[[2]domain.MarketKey{p.KeyA(), p.KeyB()}] = true
	}

	positives := make([]classifier.Pair, 0, len(confirmed))
	for _, p := range confirmed {
		a, err := s.markets.GetByKey(ctx, p.KeyA())
		if err != nil {
			s.skipPair(ctx, p, err)
			continue
		}
		b, err := s.markets.GetByKey(ctx, p.KeyB())
		if err != nil {
			s.skipPair(ctx, p, err)
			continue
		}
		positives = append(positives, classifier.Pair{A: a, B: b})
	}
	return positives, matched, nil
}

func (s *TrainingService) skipPair(ctx context.Context, p domain.MatchedPair, err error) {
	s.logger.WarnContext(ctx, "training_service: skipping pair with missing market",
		slog.Int64("pair_id", p.ID),
		slog.String("error", err.Error()),
	)
}

// sampleNegatives draws cross-source market pairings that were never matched.
// Sampling is seeded so the dataset is reproducible run over run.
func (s *TrainingService) sampleNegatives(ctx context.Context, matched map[[2]domain.MarketKey]bool, want int) ([]classifier.Pair, error) {
	markets, err := s.markets.ListAll(ctx, domain.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("training_service: load markets: %w", err)
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	negatives := make([]classifier.Pair, 0, want)
	seen := make(map[[2]domain.MarketKey]bool, want)

	// Random draws with a bounded number of attempts so a small or
	// single-venue market set cannot loop forever.
	for attempts := 0; len(negatives) < want && attempts < want*20; attempts++ {
		a := markets[rng.Intn(len(markets))]
		b := markets[rng.Intn(len(markets))]
		if a.Source == b.Source {
			continue
		}

		key := [2]domain.MarketKey{a.Key(), b.Key()}
		if key[1].Less(key[0]) {
			key[0], key[1] = key[1], key[0]
			a, b = b, a
		}
		if matched[key] || seen[key] {
			continue
		}
		seen[key] = true
		negatives = append(negatives, classifier.Pair{A: a, B: b})
	}
	return negatives, nil
}

// archiveSnapshot uploads the freshly trained model; failures are logged and
// ignored since the local model file is already written.
func (s *TrainingService) archiveSnapshot(ctx context.Context) string {
	if s.archiver == nil {
		return ""
	}

	var buf bytes.Buffer
	if err := s.model.Encode(&buf); err != nil {
		s.logger.WarnContext(ctx, "training_service: encode snapshot failed",
			slog.String("error", err.Error()),
		)
		return ""
	}
	path, err := s.archiver.ArchiveModelSnapshot(ctx, buf.Bytes(), time.Now().UTC())
	if err != nil {
		s.logger.WarnContext(ctx, "training_service: archive snapshot failed",
			slog.String("error", err.Error()),
		)
		return ""
	}
	return path
}

func (s *TrainingService) notifyTrained(ctx context.Context, result TrainingResult) {
	if s.alerter == nil {
		return
	}
	message := fmt.Sprintf("Trained on %d positives / %d negatives.\nAccuracy %.3f, AUC-ROC %.3f.\nSaved to %s",
		result.Positives, result.Negatives, result.Metrics.Accuracy, result.Metrics.AUCROC, result.ModelPath)
	if err := s.alerter.Notify(ctx, notify.EventModelTrained, "Classifier trained", message); err != nil {
		s.logger.WarnContext(ctx, "training_service: notify failed",
			slog.String("error", err.Error()),
		)
	}
}
