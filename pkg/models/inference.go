package models

// FeatureImportance pairs a feature name with its influence weight.
type FeatureImportance struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// InferenceResult is the output of a single classifier call.
// FeatureImportances always has NumFeatures entries sorted by weight descending.
type InferenceResult struct {
	CropLabel          string              `json:"recommended_crop"`
	FeatureImportances []FeatureImportance `json:"feature_importances"`
}
