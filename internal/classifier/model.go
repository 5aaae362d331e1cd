package classifier

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Pair is one labeled or scored market pairing.
type Pair struct {
	A domain.Market
	B domain.Market
}

// Metrics summarizes a training run, evaluated on the training set itself.
type Metrics struct {
	Positives    int                `json:"n_positive"`
	Negatives    int                `json:"n_negative"`
	Total        int                `json:"n_total"`
	Accuracy     float64            `json:"accuracy"`
	AUCROC       float64            `json:"auc_roc"`
	Coefficients map[string]float64 `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
}

// Classifier is a logistic regression over three pair features. The zero
// value is unusable; construct with New. Train and Load replace the model;
// Predict, PredictBatch, and FeatureImportance are safe to call concurrently
// with each other once trained.
type Classifier struct {
	mu        sync.RWMutex
	scaler    standardScaler
	weights   [numFeatures]float64
	intercept float64
	trained   bool
	trainedAt time.Time
	logger    *slog.Logger
}

// New returns an untrained classifier.
func New(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger.With(slog.String("component", "classifier"))}
}

// Train fits the scaler and model on labeled pairs. Both classes must be
// present. The returned metrics describe fit on the training data.
func (c *Classifier) Train(positives, negatives []Pair) (Metrics, error) {
	if len(positives) == 0 || len(negatives) == 0 {
		return Metrics{}, fmt.Errorf("classifier: training requires both positive and negative pairs (got %d/%d)",
			len(positives), len(negatives))
	}

	x := make([][numFeatures]float64, 0, len(positives)+len(negatives))
	y := make([]float64, 0, len(positives)+len(negatives))
	for _, p := range positives {
		x = append(x, Features(p.A, p.B))
		y = append(y, 1.0)
	}
	for _, p := range negatives {
		x = append(x, Features(p.A, p.B))
		y = append(y, 0.0)
	}

	scaler := fitScaler(x)
	scaled := make([][numFeatures]float64, len(x))
	for i, row := range x {
		scaled[i] = scaler.transform(row)
	}

	weights, intercept := fitLogistic(scaled, y)

	probs := make([]float64, len(scaled))
	correct := 0
	for i, row := range scaled {
		z := intercept
		for col, v := range row {
			z += weights[col] * v
		}
		probs[i] = sigmoid(z)
		predicted := 0.0
		if probs[i] >= 0.5 {
			predicted = 1.0
		}
		if predicted == y[i] {
			correct++
		}
	}

	c.mu.Lock()
	c.scaler = scaler
	c.weights = weights
	c.intercept = intercept
	c.trained = true
	c.trainedAt = time.Now().UTC()
	c.mu.Unlock()

	metrics := Metrics{
		Positives: len(positives),
		Negatives: len(negatives),
		Total:     len(x),
		Accuracy:  float64(correct) / float64(len(x)),
		AUCROC:    rocAUC(y, probs),
		Coefficients: map[string]float64{
			featureNames[0]: weights[0],
			featureNames[1]: weights[1],
			featureNames[2]: weights[2],
		},
		Intercept: intercept,
	}

	c.logger.Info("classifier trained",
		slog.Int("positives", metrics.Positives),
		slog.Int("negatives", metrics.Negatives),
		slog.Float64("accuracy", metrics.Accuracy),
		slog.Float64("auc_roc", metrics.AUCROC),
	)
	return metrics, nil
}

// Predict returns the probability in [0,1] that the two markets are the
// same event. Fails with domain.ErrNotTrained until Train or Load succeeds.
func (c *Classifier) Predict(a, b domain.Market) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.trained {
		return 0, domain.ErrNotTrained
	}
	return c.score(c.scaler.transform(Features(a, b))), nil
}

// PredictBatch scores each pair in order.
func (c *Classifier) PredictBatch(pairs []Pair) ([]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.trained {
		return nil, domain.ErrNotTrained
	}
	out := make([]float64, len(pairs))
	for i, p := range pairs {
		out[i] = c.score(c.scaler.transform(Features(p.A, p.B)))
	}
	return out, nil
}

// FeatureImportance returns each feature's share of the total absolute
// coefficient mass; the shares sum to 1.
func (c *Classifier) FeatureImportance() (map[string]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.trained {
		return nil, domain.ErrNotTrained
	}

	total := 0.0
	for _, w := range c.weights {
		total += math.Abs(w)
	}
	out := make(map[string]float64, numFeatures)
	if total == 0 {
		// Degenerate fit; no feature carries signal over another.
		for _, name := range featureNames {
			out[name] = 1.0 / numFeatures
		}
		return out, nil
	}
	for col, name := range featureNames {
		out[name] = math.Abs(c.weights[col]) / total
	}
	return out, nil
}

// Trained reports whether the model is ready to predict.
func (c *Classifier) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trained
}

// score applies the fitted model to an already-scaled feature row. Callers
// hold at least a read lock.
func (c *Classifier) score(row [numFeatures]float64) float64 {
	z := c.intercept
	for col, v := range row {
		z += c.weights[col] * v
	}
	return sigmoid(z)
}
