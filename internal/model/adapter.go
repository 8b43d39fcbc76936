// Package model wraps a trained classifier and its label decoder behind a
// single Infer call.
package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/kiranshivaraju/cropwise/pkg/models"
)

// Adapter turns a feature vector into a crop label plus ranked feature
// importances. It holds no mutable state and is safe for concurrent use.
type Adapter struct {
	classifier  models.Classifier
	decoder     models.LabelDecoder
	fingerprint string
}

// NewAdapter pairs a classifier with its label decoder.
func NewAdapter(c models.Classifier, d models.LabelDecoder) *Adapter {
	return &Adapter{classifier: c, decoder: d}
}

// Name returns the classifier kind.
func (a *Adapter) Name() string { return a.classifier.Name() }

// Classes returns the label decoder vocabulary.
func (a *Adapter) Classes() []string { return a.decoder.Classes() }

// Fingerprint identifies the loaded artifact. Empty for adapters not built by Load.
func (a *Adapter) Fingerprint() string { return a.fingerprint }

// Infer runs the classifier on a single row and decodes the result. Any error
// or panic from the classifier or decoder is returned wrapping ErrInference.
func (a *Adapter) Infer(vec models.FeatureVector) (res models.InferenceResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = models.InferenceResult{}
			err = fmt.Errorf("%w: classifier panic: %v", ErrInference, r)
		}
	}()

	idx, err := a.classifier.Predict(vec.Slice())
	if err != nil {
		return models.InferenceResult{}, fmt.Errorf("%w: predict: %v", ErrInference, err)
	}
	label, err := a.decoder.Decode(idx)
	if err != nil {
		return models.InferenceResult{}, fmt.Errorf("%w: decode: %v", ErrInference, err)
	}

	return models.InferenceResult{
		CropLabel:          label,
		FeatureImportances: a.importances(),
	}, nil
}

// importances ranks features by the classifier's importance signal. Without a
// usable signal every feature gets weight 0 in input order.
func (a *Adapter) importances() (out []models.FeatureImportance) {
	out = make([]models.FeatureImportance, models.NumFeatures)
	for i, name := range models.FeatureNames {
		out[i] = models.FeatureImportance{Name: name}
	}

	reporter, ok := a.classifier.(models.ImportanceReporter)
	if !ok {
		return out
	}
	weights := safeImportances(reporter)
	if len(weights) != models.NumFeatures {
		return out
	}
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return out
		}
	}

	for i := range out {
		out[i].Importance = weights[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}

func safeImportances(r models.ImportanceReporter) (w []float64) {
	defer func() {
		if recover() != nil {
			w = nil
		}
	}()
	return r.FeatureImportances()
}
