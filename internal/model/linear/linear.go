// Package linear evaluates multinomial and binary logistic regression models.
package linear

import (
	"fmt"

	"github.com/kiranshivaraju/cropwise/internal/model/bundle"
	"github.com/kiranshivaraju/cropwise/pkg/models"
)

// Model implements models.Classifier. It exposes no importance signal.
type Model struct {
	coef      [][]float64
	intercept []float64
	nClasses  int
}

// New builds a Model from a decoded bundle. A binary model carries a single
// coefficient row, as scikit-learn exports it.
func New(b *bundle.Bundle) (*Model, error) {
	nClasses := len(b.Classes)
	rows := len(b.Coef)
	switch {
	case nClasses == 2 && rows == 1:
	case rows == nClasses:
	default:
		return nil, fmt.Errorf("%w: %d coefficient rows for %d classes", bundle.ErrMalformed, rows, nClasses)
	}
	if len(b.Intercept) != rows {
		return nil, fmt.Errorf("%w: %d intercepts for %d coefficient rows", bundle.ErrMalformed, len(b.Intercept), rows)
	}
	for i, row := range b.Coef {
		if len(row) != models.NumFeatures {
			return nil, fmt.Errorf("%w: coefficient row %d has %d weights", bundle.ErrMalformed, i, len(row))
		}
	}
	return &Model{coef: b.Coef, intercept: b.Intercept, nClasses: nClasses}, nil
}

func (m *Model) Name() string { return bundle.KindLogisticRegression }

func (m *Model) Predict(x []float64) (int, error) {
	if len(x) != models.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", models.NumFeatures, len(x))
	}
	if len(m.coef) == 1 {
		if m.score(0, x) > 0 {
			return 1, nil
		}
		return 0, nil
	}
	best, bestScore := 0, m.score(0, x)
	for c := 1; c < len(m.coef); c++ {
		if s := m.score(c, x); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, nil
}

func (m *Model) score(row int, x []float64) float64 {
	s := m.intercept[row]
	for i, w := range m.coef[row] {
		s += w * x[i]
	}
	return s
}
