// Package forest evaluates random forest classifiers exported as flattened
// decision-tree arrays.
package forest

import (
	"fmt"

	"github.com/kiranshivaraju/cropwise/internal/model/bundle"
	"github.com/kiranshivaraju/cropwise/pkg/models"
)

// Forest implements models.Classifier and models.ImportanceReporter.
type Forest struct {
	trees       []bundle.Tree
	nClasses    int
	importances []float64
}

// New builds a Forest from a decoded bundle, rejecting trees that could loop,
// index out of range, or disagree with the class count.
func New(b *bundle.Bundle) (*Forest, error) {
	if len(b.Trees) == 0 {
		return nil, fmt.Errorf("%w: random forest has no trees", bundle.ErrMalformed)
	}
	nClasses := len(b.Classes)
	for i, t := range b.Trees {
		if err := checkTree(t, nClasses); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", bundle.ErrMalformed, i, err)
		}
	}
	var imp []float64
	if len(b.FeatureImportances) == models.NumFeatures {
		imp = append([]float64(nil), b.FeatureImportances...)
	}
	return &Forest{trees: b.Trees, nClasses: nClasses, importances: imp}, nil
}

func checkTree(t bundle.Tree, nClasses int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays have mismatched lengths")
	}
	for node := 0; node < n; node++ {
		left, right := t.ChildrenLeft[node], t.ChildrenRight[node]
		if left == -1 || right == -1 {
			if left != right {
				return fmt.Errorf("node %d has exactly one child", node)
			}
		} else {
			// Children always follow their parent in the flattened layout.
			if left <= node || right <= node || left >= n || right >= n {
				return fmt.Errorf("node %d has invalid children %d/%d", node, left, right)
			}
			if f := t.Feature[node]; f < 0 || f >= models.NumFeatures {
				return fmt.Errorf("node %d splits on unknown feature %d", node, f)
			}
		}
		if len(t.Value[node]) != nClasses {
			return fmt.Errorf("node %d has %d class weights, expected %d", node, len(t.Value[node]), nClasses)
		}
	}
	return nil
}

func (f *Forest) Name() string { return bundle.KindRandomForest }

// Predict averages each tree's normalized leaf distribution and returns the
// index of the most probable class; ties resolve to the lowest index.
func (f *Forest) Predict(x []float64) (int, error) {
	if len(x) != models.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", models.NumFeatures, len(x))
	}
	proba := make([]float64, f.nClasses)
	for _, t := range f.trees {
		leaf := descend(t, x)
		var total float64
		for _, w := range t.Value[leaf] {
			total += w
		}
		if total <= 0 {
			continue
		}
		for c, w := range t.Value[leaf] {
			proba[c] += w / total
		}
	}
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return best, nil
}

func descend(t bundle.Tree, x []float64) int {
	node := 0
	for t.ChildrenLeft[node] != -1 {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}

// FeatureImportances returns nil when the artifact carried no importances.
func (f *Forest) FeatureImportances() []float64 {
	if f.importances == nil {
		return nil
	}
	return append([]float64(nil), f.importances...)
}
