package classifier

import "math"

// Solver settings. Full-batch gradient descent on standardized features is
// deterministic, so retraining on identical data reproduces the same model.
const (
	maxIterations = 1000
	learningRate  = 0.5
	l2Lambda      = 1.0
	gradTolerance = 1e-7
)

// sigmoid computed in the branch that avoids exp overflow.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

// standardScaler centers each feature column and scales it to unit variance.
// Constant columns keep scale 1 so they pass through centered.
type standardScaler struct {
	Mean [numFeatures]float64 `json:"mean"`
	Std  [numFeatures]float64 `json:"std"`
}

func fitScaler(x [][numFeatures]float64) standardScaler {
	var s standardScaler
	n := float64(len(x))
	for _, row := range x {
		for col, v := range row {
			s.Mean[col] += v
		}
	}
	for col := range s.Mean {
		s.Mean[col] /= n
	}
	for _, row := range x {
		for col, v := range row {
			d := v - s.Mean[col]
			s.Std[col] += d * d
		}
	}
	for col := range s.Std {
		s.Std[col] = math.Sqrt(s.Std[col] / n)
		if s.Std[col] == 0 {
			s.Std[col] = 1.0
		}
	}
	return s
}

func (s standardScaler) transform(row [numFeatures]float64) [numFeatures]float64 {
	var out [numFeatures]float64
	for col, v := range row {
		out[col] = (v - s.Mean[col]) / s.Std[col]
	}
	return out
}

// fitLogistic minimizes mean log loss with L2 weight regularization
// (intercept unpenalized) by gradient descent, stopping early once the
// gradient is flat.
func fitLogistic(x [][numFeatures]float64, y []float64) (weights [numFeatures]float64, intercept float64) {
	n := float64(len(x))

	for iter := 0; iter < maxIterations; iter++ {
		var gradW [numFeatures]float64
		var gradB float64

		for i, row := range x {
			z := intercept
			for col, v := range row {
				z += weights[col] * v
			}
			err := sigmoid(z) - y[i]
			for col, v := range row {
				gradW[col] += err * v
			}
			gradB += err
		}

		maxGrad := 0.0
		for col := range gradW {
			gradW[col] = (gradW[col] + l2Lambda*weights[col]) / n
			if g := math.Abs(gradW[col]); g > maxGrad {
				maxGrad = g
			}
		}
		gradB /= n
		if g := math.Abs(gradB); g > maxGrad {
			maxGrad = g
		}

		for col := range weights {
			weights[col] -= learningRate * gradW[col]
		}
		intercept -= learningRate * gradB

		if maxGrad < gradTolerance {
			break
		}
	}

	return weights, intercept
}

// rocAUC is the probability that a random positive outranks a random
// negative, with half credit for ties.
func rocAUC(y, scores []float64) float64 {
	var wins, pairs float64
	for i := range y {
		if y[i] != 1.0 {
			continue
		}
		for j := range y {
			if y[j] != 0.0 {
				continue
			}
			pairs++
			switch {
			case scores[i] > scores[j]:
				wins += 1.0
			case scores[i] == scores[j]:
				wins += 0.5
			}
		}
	}
	if pairs == 0 {
		return 0.0
	}
	return wins / pairs
}
