package ml

import "math"

// Scaler standardizes feature columns to zero mean and unit variance.
// A model handle carries the scaler it was trained with; scoring always
// goes through the same normalization.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes column means and standard deviations over the rows.
func FitScaler(rows [][]float64) *Scaler {
	if len(rows) == 0 {
		return &Scaler{}
	}
	dims := len(rows[0])
	mean := make([]float64, dims)
	std := make([]float64, dims)

	for _, row := range rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1 // constant column, leave it centered only
		}
	}
	return &Scaler{Mean: mean, Std: std}
}

// Transform returns the standardized copy of one row.
func (s *Scaler) Transform(row []float64) []float64 {
	if len(s.Mean) != len(row) {
		out := append([]float64(nil), row...)
		return out
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}
