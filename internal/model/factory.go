package model

import (
	"encoding/hex"
	"fmt"

	"github.com/kiranshivaraju/cropwise/internal/model/bundle"
	"github.com/kiranshivaraju/cropwise/internal/model/forest"
	"github.com/kiranshivaraju/cropwise/internal/model/linear"
	"github.com/kiranshivaraju/cropwise/pkg/models"
	"golang.org/x/crypto/blake2b"
)

// Load reads the model artifact at path and builds the matching classifier.
// Called once at startup; any error means the service must not start.
func Load(path string) (*Adapter, error) {
	b, raw, err := bundle.Read(path)
	if err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(b)
	if err != nil {
		return nil, err
	}

	sum := blake2b.Sum256(raw)
	a := NewAdapter(classifier, bundle.Labels(b.Classes))
	a.fingerprint = hex.EncodeToString(sum[:])
	return a, nil
}

// NewClassifier constructs the classifier for the bundle's kind.
func NewClassifier(b *bundle.Bundle) (models.Classifier, error) {
	switch b.Kind {
	case bundle.KindRandomForest:
		return forest.New(b)
	case bundle.KindLogisticRegression:
		return linear.New(b)
	default:
		return nil, fmt.Errorf("%w: unknown model kind %q: must be one of %s, %s",
			bundle.ErrMalformed, b.Kind, bundle.KindRandomForest, bundle.KindLogisticRegression)
	}
}
