// Package ml holds the scoring ensemble: a supervised logistic
// classifier and an unsupervised anomaly detector combined into one
// probability-like threat score, with atomic model handle swaps so
// retraining never blocks concurrent scoring.
package ml

import (
	"encoding/gob"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"ShieldAI/internal/config"
	"ShieldAI/internal/model"
)

// trainSeed keeps the train/test split reproducible across runs.
const trainSeed = 42

// ModelHandle is one immutable trained generation of the ensemble: the
// member models plus the scaler they were trained with. Handles are
// replaced atomically on retraining; a handle captured by an in-flight
// Score call stays valid until that call returns.
type ModelHandle struct {
	Classifier    *LogisticClassifier
	Detector      *AnomalyDetector
	Scaler        *Scaler
	TrainedAt     time.Time
	Accuracy      float64
	WeaklyLabeled bool
}

// Ensemble combines the member models into one threat score. It is safe
// for any number of concurrent Score calls; Train is the only writer and
// swaps the handle once, after training completes.
type Ensemble struct {
	cfg    config.EnsembleConfig
	handle atomic.Pointer[ModelHandle]

	trainMu      sync.Mutex
	degradedOnce sync.Once
}

// NewEnsemble creates an ensemble with no model loaded. Weights are
// normalized so the combined score stays in [0,1].
func NewEnsemble(cfg config.EnsembleConfig) *Ensemble {
	if s := cfg.SupervisedWeight + cfg.AnomalyWeight; s > 0 && s != 1 {
		cfg.SupervisedWeight /= s
		cfg.AnomalyWeight /= s
	}
	return &Ensemble{cfg: cfg}
}

// Score returns the combined threat score in [0,1] for a feature vector,
// and whether the score is the degraded no-model default. The handle is
// captured once at call start; a concurrent retrain does not affect this
// call.
func (e *Ensemble) Score(fv model.FeatureVector) (float64, bool) {
	h := e.handle.Load()
	if h == nil {
		e.degradedOnce.Do(func() {
			log.Printf("WARN: scoring without a trained model, returning degraded default %.2f", e.cfg.DegradedScore)
		})
		return clamp01(e.cfg.DegradedScore), true
	}

	row := h.Scaler.Transform(fv[:])
	score := e.cfg.SupervisedWeight*h.Classifier.PredictProba(row) +
		e.cfg.AnomalyWeight*h.Detector.Score(row)
	return clamp01(score), false
}

// Ready reports whether a trained model handle is loaded.
func (e *Ensemble) Ready() bool {
	return e.handle.Load() != nil
}

// Train fits a new model generation on the labeled table and swaps it in
// atomically. Synchronous from the caller's perspective, but concurrent
// Score calls keep using whichever handle they captured. On any error
// the previous handle is left untouched.
func (e *Ensemble) Train(ds *Dataset) (*TrainReport, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	// One training run at a time; scoring is never held up by this lock.
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	trainX, trainY, testX, testY := split(ds)

	scaler := FitScaler(trainX)
	scaled := make([][]float64, len(trainX))
	var benign [][]float64
	for i, row := range trainX {
		scaled[i] = scaler.Transform(row)
		if trainY[i] == 0 {
			benign = append(benign, scaled[i])
		}
	}

	clf := TrainLogistic(scaled, trainY)
	det := TrainAnomaly(benign)

	report := evaluate(clf, scaler, testX, testY)
	report.Samples = len(ds.Features)
	report.WeaklyLabeled = ds.WeaklyLabeled

	h := &ModelHandle{
		Classifier:    clf,
		Detector:      det,
		Scaler:        scaler,
		TrainedAt:     time.Now().UTC(),
		Accuracy:      report.Accuracy,
		WeaklyLabeled: ds.WeaklyLabeled,
	}
	e.handle.Store(h)
	log.Printf("Ensemble trained on %d samples, accuracy %.3f (weakly labeled: %v)",
		report.Samples, report.Accuracy, ds.WeaklyLabeled)

	if err := e.persist(h); err != nil {
		log.Printf("WARN: failed to persist model handle: %v", err)
	}
	return report, nil
}

// LoadOrInitialize tries to load a persisted model handle from the
// configured path. It returns true iff a model is loaded afterwards;
// false means the ensemble starts in the degraded no-model state.
func (e *Ensemble) LoadOrInitialize() bool {
	if e.cfg.ModelPath == "" {
		return e.Ready()
	}
	file, err := os.Open(e.cfg.ModelPath)
	if err != nil {
		log.Printf("No persisted model at %s, starting untrained", e.cfg.ModelPath)
		return e.Ready()
	}
	defer file.Close()

	var h ModelHandle
	if err := gob.NewDecoder(file).Decode(&h); err != nil {
		log.Printf("WARN: failed to decode persisted model: %v", err)
		return e.Ready()
	}
	e.handle.Store(&h)
	log.Printf("Loaded persisted model trained at %s (accuracy %.3f)", h.TrainedAt.Format(time.RFC3339), h.Accuracy)
	return true
}

// persist gob-encodes the handle to the configured model path.
func (e *Ensemble) persist(h *ModelHandle) error {
	if e.cfg.ModelPath == "" {
		return nil
	}
	if dir := filepath.Dir(e.cfg.ModelPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}
	file, err := os.Create(e.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(h); err != nil {
		return fmt.Errorf("failed to encode model handle: %w", err)
	}
	return nil
}

// split shuffles deterministically and carves off a 20% held-out set,
// keeping at least one sample on each side.
func split(ds *Dataset) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	n := len(ds.Features)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(trainSeed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	testN := n / 5
	if testN < 1 {
		testN = 1
	}
	for i, id := range idx {
		if i < testN {
			testX = append(testX, ds.Features[id])
			testY = append(testY, ds.Labels[id])
		} else {
			trainX = append(trainX, ds.Features[id])
			trainY = append(trainY, ds.Labels[id])
		}
	}
	return
}

// evaluate computes accuracy and per-class precision/recall of the
// supervised member on the held-out set.
func evaluate(clf *LogisticClassifier, scaler *Scaler, testX [][]float64, testY []int) *TrainReport {
	classNames := [2]string{"benign", "attack"}
	var correct int
	var tp, fp, fn [2]int

	for i, row := range testX {
		pred := 0
		if clf.PredictProba(scaler.Transform(row)) >= 0.5 {
			pred = 1
		}
		truth := testY[i]
		if pred == truth {
			correct++
			tp[truth]++
		} else {
			fp[pred]++
			fn[truth]++
		}
	}

	report := &TrainReport{PerClass: make(map[string]ClassMetrics, 2)}
	if len(testX) > 0 {
		report.Accuracy = float64(correct) / float64(len(testX))
	}
	for c := 0; c < 2; c++ {
		m := ClassMetrics{Support: tp[c] + fn[c]}
		if tp[c]+fp[c] > 0 {
			m.Precision = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if tp[c]+fn[c] > 0 {
			m.Recall = float64(tp[c]) / float64(tp[c]+fn[c])
		}
		report.PerClass[classNames[c]] = m
	}
	return report
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
