package ml

import "math"

// anomalyMidpoint is the mean absolute z-score at which the squashed
// anomaly score crosses 0.5. Benign traffic in standardized space sits
// well below it.
const anomalyMidpoint = 3.0

// AnomalyDetector is the unsupervised member of the ensemble. It models
// benign traffic as an axis-aligned Gaussian in standardized feature
// space; the decision score is the mean absolute z-score against that
// baseline, squashed into a [0,1] pseudo-probability with a logistic
// transform (monotone, so ordering of raw scores is preserved).
type AnomalyDetector struct {
	Mean []float64
	Std  []float64
}

// TrainAnomaly fits the benign baseline. Rows should be the standardized
// benign subset of the training data.
func TrainAnomaly(rows [][]float64) *AnomalyDetector {
	scaler := FitScaler(rows)
	return &AnomalyDetector{Mean: scaler.Mean, Std: scaler.Std}
}

// Score returns the [0,1] pseudo-probability that the row is anomalous.
func (d *AnomalyDetector) Score(row []float64) float64 {
	if len(d.Mean) == 0 {
		return 0
	}
	sum := 0.0
	n := 0
	for j, v := range row {
		if j >= len(d.Mean) {
			break
		}
		sum += math.Abs((v - d.Mean[j]) / d.Std[j])
		n++
	}
	if n == 0 {
		return 0
	}
	return sigmoid(sum/float64(n) - anomalyMidpoint)
}
