// Package models contains shared data models used across the cropwise codebase.
package models

// Classifier is the narrow capability every trained model artifact must expose.
// Implementations are loaded once at startup and must be safe for concurrent
// read-only use.
type Classifier interface {
	// Predict returns the categorical class index for a single feature row.
	Predict(features []float64) (int, error)
	// Name returns the artifact kind (e.g., "random_forest").
	Name() string
}

// LabelDecoder maps a classifier's class index back to a crop name.
type LabelDecoder interface {
	Decode(index int) (string, error)
	// Classes returns the full label vocabulary in index order.
	Classes() []string
}

// ImportanceReporter is implemented by classifiers that expose a per-feature
// importance signal, in FeatureNames order.
type ImportanceReporter interface {
	FeatureImportances() []float64
}
