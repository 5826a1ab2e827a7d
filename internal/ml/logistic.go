package ml

import "math"

// Training hyperparameters for the supervised member. Fixed per
// deployment; the combination weights are the only tunables exposed
// through configuration.
const (
	logisticEpochs       = 300
	logisticLearningRate = 0.1
)

// LogisticClassifier is the supervised member of the ensemble: a binary
// logistic-regression model over standardized features, trained with
// batch gradient descent. Its output is the probability of the attack
// class.
type LogisticClassifier struct {
	Weights []float64
	Bias    float64
}

// TrainLogistic fits a classifier on standardized rows and binary labels.
func TrainLogistic(rows [][]float64, labels []int) *LogisticClassifier {
	if len(rows) == 0 {
		return &LogisticClassifier{}
	}
	dims := len(rows[0])
	clf := &LogisticClassifier{Weights: make([]float64, dims)}

	n := float64(len(rows))
	gradW := make([]float64, dims)
	for epoch := 0; epoch < logisticEpochs; epoch++ {
		for j := range gradW {
			gradW[j] = 0
		}
		gradB := 0.0
		for i, row := range rows {
			err := clf.PredictProba(row) - float64(labels[i])
			for j, v := range row {
				gradW[j] += err * v
			}
			gradB += err
		}
		for j := range clf.Weights {
			clf.Weights[j] -= logisticLearningRate * gradW[j] / n
		}
		clf.Bias -= logisticLearningRate * gradB / n
	}
	return clf
}

// PredictProba returns the attack-class probability for one row.
func (c *LogisticClassifier) PredictProba(row []float64) float64 {
	z := c.Bias
	for j, w := range c.Weights {
		if j < len(row) {
			z += w * row[j]
		}
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	// Guard against overflow in Exp for extreme logits.
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
