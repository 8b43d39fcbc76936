package bundle_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiranshivaraju/cropwise/internal/model/bundle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
  "kind": "logistic_regression",
  "features": ["N", "P", "K", "temperature", "humidity", "ph", "rainfall"],
  "classes": ["maize", "rice"],
  "coef": [[0, 0, 0, 0, 0, 0, 1]],
  "intercept": [0]
}`

func TestDecode_JSON(t *testing.T) {
	b, err := bundle.Decode([]byte(validJSON), ".json")
	require.NoError(t, err)
	assert.Equal(t, bundle.KindLogisticRegression, b.Kind)
	assert.Equal(t, []string{"maize", "rice"}, b.Classes)
}

func TestDecode_YAML(t *testing.T) {
	data := `
kind: random_forest
features: [N, P, K, temperature, humidity, ph, rainfall]
classes: [rice]
trees:
  - children_left: [-1]
    children_right: [-1]
    feature: [-2]
    threshold: [-2]
    value: [[1]]
`
	b, err := bundle.Decode([]byte(data), ".YML")
	require.NoError(t, err)
	require.Len(t, b.Trees, 1)
	assert.Equal(t, [][]float64{{1}}, b.Trees[0].Value)
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]struct {
		data string
		ext  string
	}{
		"bad json":        {data: `{"kind":`, ext: ".json"},
		"unknown format":  {data: validJSON, ext: ".pkl"},
		"missing kind":    {data: `{"features":["N","P","K","temperature","humidity","ph","rainfall"],"classes":["a"]}`, ext: ".json"},
		"feature order":   {data: `{"kind":"x","features":["P","N","K","temperature","humidity","ph","rainfall"],"classes":["a"]}`, ext: ".json"},
		"too few":         {data: `{"kind":"x","features":["N"],"classes":["a"]}`, ext: ".json"},
		"no classes":      {data: `{"kind":"x","features":["N","P","K","temperature","humidity","ph","rainfall"],"classes":[]}`, ext: ".json"},
		"dup classes":     {data: `{"kind":"x","features":["N","P","K","temperature","humidity","ph","rainfall"],"classes":["a","a"]}`, ext: ".json"},
		"importance size": {data: `{"kind":"x","features":["N","P","K","temperature","humidity","ph","rainfall"],"classes":["a"],"feature_importances":[1]}`, ext: ".json"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := bundle.Decode([]byte(tc.data), tc.ext)
			require.Error(t, err)
			assert.True(t, errors.Is(err, bundle.ErrMalformed))
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	_, _, err := bundle.Read(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLabels_Decode(t *testing.T) {
	l := bundle.Labels{"maize", "rice"}

	got, err := l.Decode(1)
	require.NoError(t, err)
	assert.Equal(t, "rice", got)

	_, err = l.Decode(2)
	assert.Error(t, err)
	_, err = l.Decode(-1)
	assert.Error(t, err)

	classes := l.Classes()
	classes[0] = "changed"
	assert.Equal(t, "maize", l[0])
}
