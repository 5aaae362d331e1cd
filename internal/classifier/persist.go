package classifier

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// modelFileVersion guards against loading snapshots written by an
// incompatible layout.
const modelFileVersion = 1

// modelFile is the on-disk snapshot of a trained model: scaler and
// coefficients persist as one unit so a reload predicts identically.
type modelFile struct {
	Version      int            `json:"version"`
	TrainedAt    time.Time      `json:"trained_at"`
	FeatureNames []string       `json:"feature_names"`
	Scaler       standardScaler `json:"scaler"`
	Coefficients []float64      `json:"coefficients"`
	Intercept    float64        `json:"intercept"`
}

// Encode writes the trained model as JSON.
func (c *Classifier) Encode(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.trained {
		return fmt.Errorf("classifier: cannot encode untrained model")
	}

	file := modelFile{
		Version:      modelFileVersion,
		TrainedAt:    c.trainedAt,
		FeatureNames: FeatureNames(),
		Scaler:       c.scaler,
		Coefficients: []float64{c.weights[0], c.weights[1], c.weights[2]},
		Intercept:    c.intercept,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("classifier: encode model: %w", err)
	}
	return nil
}

// Decode replaces the model with the snapshot read from r.
func (c *Classifier) Decode(r io.Reader) error {
	var file modelFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return fmt.Errorf("classifier: decode model: %w", err)
	}
	if file.Version != modelFileVersion {
		return fmt.Errorf("classifier: unsupported model version %d", file.Version)
	}
	if len(file.Coefficients) != numFeatures {
		return fmt.Errorf("classifier: model has %d coefficients, want %d", len(file.Coefficients), numFeatures)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.scaler = file.Scaler
	copy(c.weights[:], file.Coefficients)
	c.intercept = file.Intercept
	c.trainedAt = file.TrainedAt
	c.trained = true
	return nil
}

// Save writes the trained model to path atomically: the snapshot goes to a
// temporary file in the same directory and is renamed into place, so a
// crash mid-write never leaves a truncated model behind.
func (c *Classifier) Save(path string) error {
	if !c.Trained() {
		return fmt.Errorf("classifier: cannot save untrained model")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("classifier: create model dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".classifier-*.json")
	if err != nil {
		return fmt.Errorf("classifier: create temp model file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := c.Encode(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("classifier: sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("classifier: close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("classifier: rename model file: %w", err)
	}
	return nil
}

// Load reads a model snapshot from path.
func (c *Classifier) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("classifier: open model file: %w", err)
	}
	defer f.Close()
	return c.Decode(f)
}
