// Package mock provides a scriptable classifier for tests.
package mock

import (
	"errors"

	"github.com/kiranshivaraju/cropwise/pkg/models"
)

// Classifier satisfies models.Classifier for testing.
type Classifier struct {
	Name_       string
	PredictFunc func(features []float64) (int, error)
}

func (c *Classifier) Name() string { return c.Name_ }

func (c *Classifier) Predict(features []float64) (int, error) {
	if c.PredictFunc != nil {
		return c.PredictFunc(features)
	}
	return 0, nil
}

// RankedClassifier additionally reports feature importances.
type RankedClassifier struct {
	Classifier
	Importances []float64
}

func (c *RankedClassifier) FeatureImportances() []float64 { return c.Importances }

// NewClassifier returns a Classifier that always predicts index.
func NewClassifier(index int) *Classifier {
	return &Classifier{
		Name_: "mock",
		PredictFunc: func(_ []float64) (int, error) {
			return index, nil
		},
	}
}

// NewFailingClassifier returns a Classifier that always returns err.
func NewFailingClassifier(err error) *Classifier {
	if err == nil {
		err = errors.New("mock classifier failure")
	}
	return &Classifier{
		Name_: "mock",
		PredictFunc: func(_ []float64) (int, error) {
			return 0, err
		},
	}
}

// Compile-time interface checks.
var (
	_ models.Classifier         = (*Classifier)(nil)
	_ models.ImportanceReporter = (*RankedClassifier)(nil)
)
