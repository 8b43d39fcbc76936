// Package features turns untrusted request fields into an ordered feature vector.
package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/cropwise/pkg/models"
)

var (
	ErrMissingField    = errors.New("missing field")
	ErrNonNumericField = errors.New("non-numeric field")
)

// FieldError identifies the offending input field. It wraps either
// ErrMissingField or ErrNonNumericField.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrMissingField) {
		return "Missing field: " + e.Field
	}
	return fmt.Sprintf("Field %s must be numeric", e.Field)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Validate checks that every recognized feature is present and numeric, in
// models.FeatureNames order, and returns them as a vector. Values are not
// range-checked. Unrecognized keys are ignored.
func Validate(raw map[string]any) (models.FeatureVector, error) {
	var vec models.FeatureVector
	for i, name := range models.FeatureNames {
		v, ok := raw[name]
		if !ok {
			return models.FeatureVector{}, &FieldError{Field: name, Err: ErrMissingField}
		}
		f, ok := toFloat(v)
		if !ok {
			return models.FeatureVector{}, &FieldError{Field: name, Err: ErrNonNumericField}
		}
		vec[i] = f
	}
	return vec, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	// NaN and infinities cannot be stored or serialized back as JSON.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
