package models

// NumFeatures is the fixed width of every feature vector.
const NumFeatures = 7

// FeatureNames lists the model inputs in the order the classifier was trained on.
var FeatureNames = [NumFeatures]string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall"}

// FeatureVector holds one agronomic sample in FeatureNames order.
type FeatureVector [NumFeatures]float64

// Slice returns a copy of the vector as a slice, ready for a classifier call.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// Named returns the vector keyed by feature name.
func (v FeatureVector) Named() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		m[name] = v[i]
	}
	return m
}
