package ml

import (
	"errors"
	"sort"

	"ShieldAI/internal/feature"
	"ShieldAI/internal/model"
)

// Training failure taxonomy. Surfaced to callers as structured errors;
// the ensemble keeps its previous model handle when training fails.
var (
	ErrInsufficientData = errors.New("insufficient_data")
	ErrMissingLabels    = errors.New("missing_labels")
)

// MinTrainSamples is the smallest labeled table the ensemble will train on.
const MinTrainSamples = 20

// Dataset is a labeled feature table supplied by the caller. Feature rows
// follow the fixed ordering in internal/feature; labels are binary
// (0 benign, 1 attack). The ensemble never fabricates labels.
type Dataset struct {
	Features [][]float64
	Labels   []int
	// WeaklyLabeled marks datasets labeled by WeakLabelByteRate rather
	// than ground truth. Carried into the training report.
	WeaklyLabeled bool
}

// Validate checks the table against the training failure taxonomy.
func (d *Dataset) Validate() error {
	if len(d.Features) < MinTrainSamples {
		return ErrInsufficientData
	}
	if len(d.Labels) != len(d.Features) {
		return ErrMissingLabels
	}
	for _, row := range d.Features {
		if len(row) != model.NumFeatures {
			return ErrInsufficientData
		}
	}
	// A constant label column cannot train a classifier.
	first := d.Labels[0]
	for _, l := range d.Labels[1:] {
		if l != first {
			return nil
		}
	}
	return ErrMissingLabels
}

// WeakLabelByteRate builds a weakly supervised dataset from an unlabeled
// feature table by marking the top byte-rate tertile as attack traffic.
//
// This is a heuristic of unverified soundness, kept as an explicit
// opt-in for deployments with no ground truth at all. Reports produced
// from such a dataset carry WeaklyLabeled so the accuracy claims are
// not mistaken for validated ones.
func WeakLabelByteRate(features [][]float64) *Dataset {
	rates := make([]float64, len(features))
	for i, row := range features {
		if len(row) > feature.BytesPerSecond {
			rates[i] = row[feature.BytesPerSecond]
		}
	}

	sorted := append([]float64(nil), rates...)
	sort.Float64s(sorted)
	cut := 0.0
	if n := len(sorted); n > 0 {
		cut = sorted[n*2/3]
	}

	labels := make([]int, len(features))
	for i, r := range rates {
		if r >= cut && cut > 0 {
			labels[i] = 1
		}
	}
	return &Dataset{Features: features, Labels: labels, WeaklyLabeled: true}
}

// ClassMetrics is the per-class slice of a training report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Support   int     `json:"support"`
}

// TrainReport summarizes a completed training run.
type TrainReport struct {
	Accuracy      float64                 `json:"accuracy"`
	PerClass      map[string]ClassMetrics `json:"per_class"`
	Samples       int                     `json:"samples"`
	WeaklyLabeled bool                    `json:"weakly_labeled,omitempty"`
}
