package models

// CropDetail holds the static agronomic knowledge attached to a recommendation.
type CropDetail struct {
	Desc           string   `json:"desc"            yaml:"desc"`
	FertilizerLink string   `json:"fertilizer_link" yaml:"fertilizer_link"`
	Tips           []string `json:"tips"            yaml:"tips"`
}
