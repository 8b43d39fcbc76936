package features_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kiranshivaraju/cropwise/internal/features"
	"github.com/kiranshivaraju/cropwise/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() map[string]any {
	return map[string]any{
		"N": 90, "P": 40, "K": 40,
		"temperature": 25, "humidity": 80, "ph": 6.5, "rainfall": 200,
	}
}

func TestValidate_Success(t *testing.T) {
	vec, err := features.Validate(validInput())
	require.NoError(t, err)
	assert.Equal(t, models.FeatureVector{90, 40, 40, 25, 80, 6.5, 200}, vec)
}

func TestValidate_MissingEachField(t *testing.T) {
	for _, name := range models.FeatureNames {
		t.Run(name, func(t *testing.T) {
			raw := validInput()
			delete(raw, name)

			_, err := features.Validate(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, features.ErrMissingField))

			var fe *features.FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, name, fe.Field)
			assert.Equal(t, "Missing field: "+name, err.Error())
		})
	}
}

func TestValidate_NonNumeric(t *testing.T) {
	cases := map[string]any{
		"word":   "abc",
		"nil":    nil,
		"bool":   true,
		"object": map[string]any{"v": 1},
		"array":  []any{1.0},
		"nan":    "NaN",
		"inf":    "+Inf",
		"empty":  "",
	}
	for label, v := range cases {
		t.Run(label, func(t *testing.T) {
			raw := validInput()
			raw["humidity"] = v

			_, err := features.Validate(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, features.ErrNonNumericField))
			assert.Equal(t, "Field humidity must be numeric", err.Error())
		})
	}
}

func TestValidate_NumericStringsAndJSONNumbers(t *testing.T) {
	raw := validInput()
	raw["ph"] = " 6.8 "
	raw["rainfall"] = json.Number("180.5")

	vec, err := features.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, 6.8, vec[5])
	assert.Equal(t, 180.5, vec[6])
}

func TestValidate_OutOfRangeAccepted(t *testing.T) {
	raw := validInput()
	raw["ph"] = 42.0
	raw["temperature"] = -80

	vec, err := features.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, 42.0, vec[5])
	assert.Equal(t, -80.0, vec[3])
}

func TestValidate_ExtraFieldsIgnored(t *testing.T) {
	raw := validInput()
	raw["soil_type"] = "loam"

	_, err := features.Validate(raw)
	assert.NoError(t, err)
}

func TestValidate_FirstFailureInFeatureOrder(t *testing.T) {
	raw := validInput()
	delete(raw, "rainfall")
	raw["P"] = "x"

	_, err := features.Validate(raw)
	var fe *features.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "P", fe.Field)
}
