// Package bundle decodes trained model artifacts exported from the training
// pipeline. A bundle carries the classifier payload and its label decoder.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/cropwise/pkg/models"
	"gopkg.in/yaml.v3"
)

// ErrMalformed is returned when a bundle is structurally unusable.
var ErrMalformed = errors.New("malformed model bundle")

const (
	KindRandomForest       = "random_forest"
	KindLogisticRegression = "logistic_regression"
)

// Tree is one decision tree in the flattened array layout used by
// scikit-learn's tree_ attribute. Leaves have ChildrenLeft == ChildrenRight == -1.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"  yaml:"children_left"`
	ChildrenRight []int       `json:"children_right" yaml:"children_right"`
	Feature       []int       `json:"feature"        yaml:"feature"`
	Threshold     []float64   `json:"threshold"      yaml:"threshold"`
	Value         [][]float64 `json:"value"          yaml:"value"`
}

// Bundle is the on-disk model artifact.
type Bundle struct {
	Kind               string    `json:"kind"                          yaml:"kind"`
	Features           []string  `json:"features"                      yaml:"features"`
	Classes            []string  `json:"classes"                       yaml:"classes"`
	FeatureImportances []float64 `json:"feature_importances,omitempty" yaml:"feature_importances,omitempty"`

	// random_forest
	Trees []Tree `json:"trees,omitempty" yaml:"trees,omitempty"`

	// logistic_regression
	Coef      [][]float64 `json:"coef,omitempty"      yaml:"coef,omitempty"`
	Intercept []float64   `json:"intercept,omitempty" yaml:"intercept,omitempty"`
}

// Read loads and decodes the bundle at path. The raw bytes are returned so the
// caller can fingerprint the artifact.
func Read(path string) (*Bundle, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read model bundle %s: %w", path, err)
	}
	b, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, nil, fmt.Errorf("decode model bundle %s: %w", path, err)
	}
	return b, data, nil
}

// Decode parses data according to the file extension (".json", ".yaml", ".yml")
// and checks the fields every kind shares.
func Decode(data []byte, ext string) (*Bundle, error) {
	var b Bundle
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported artifact format %q", ErrMalformed, ext)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Bundle) validate() error {
	if b.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrMalformed)
	}
	if len(b.Features) != models.NumFeatures {
		return fmt.Errorf("%w: expected %d features, got %d", ErrMalformed, models.NumFeatures, len(b.Features))
	}
	for i, name := range models.FeatureNames {
		if b.Features[i] != name {
			return fmt.Errorf("%w: feature %d is %q, expected %q", ErrMalformed, i, b.Features[i], name)
		}
	}
	if len(b.Classes) == 0 {
		return fmt.Errorf("%w: label decoder has no classes", ErrMalformed)
	}
	seen := make(map[string]bool, len(b.Classes))
	for _, c := range b.Classes {
		if c == "" {
			return fmt.Errorf("%w: empty class label", ErrMalformed)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate class label %q", ErrMalformed, c)
		}
		seen[c] = true
	}
	if n := len(b.FeatureImportances); n != 0 && n != models.NumFeatures {
		return fmt.Errorf("%w: expected %d feature importances, got %d", ErrMalformed, models.NumFeatures, n)
	}
	return nil
}

// Labels is the label decoder stored in a bundle.
type Labels []string

func (l Labels) Decode(index int) (string, error) {
	if index < 0 || index >= len(l) {
		return "", fmt.Errorf("class index %d out of range [0, %d)", index, len(l))
	}
	return l[index], nil
}

func (l Labels) Classes() []string {
	out := make([]string, len(l))
	copy(out, l)
	return out
}
