package models

import (
	"encoding/json"
	"time"
)

// PredictionRecord is one immutable ledger row. ID is assigned by storage.
type PredictionRecord struct {
	ID              int64
	Timestamp       time.Time
	Features        FeatureVector
	RecommendedCrop string
}

type predictionRecordJSON struct {
	ID              int64     `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	N               float64   `json:"N"`
	P               float64   `json:"P"`
	K               float64   `json:"K"`
	Temperature     float64   `json:"temperature"`
	Humidity        float64   `json:"humidity"`
	PH              float64   `json:"ph"`
	Rainfall        float64   `json:"rainfall"`
	RecommendedCrop string    `json:"recommended_crop"`
}

// MarshalJSON flattens the feature vector into named columns, matching the
// ledger table layout.
func (r PredictionRecord) MarshalJSON() ([]byte, error) {
	f := r.Features
	return json.Marshal(predictionRecordJSON{
		ID:              r.ID,
		Timestamp:       r.Timestamp.UTC(),
		N:               f[0],
		P:               f[1],
		K:               f[2],
		Temperature:     f[3],
		Humidity:        f[4],
		PH:              f[5],
		Rainfall:        f[6],
		RecommendedCrop: r.RecommendedCrop,
	})
}

func (r *PredictionRecord) UnmarshalJSON(data []byte) error {
	var j predictionRecordJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*r = PredictionRecord{
		ID:              j.ID,
		Timestamp:       j.Timestamp.UTC(),
		Features:        FeatureVector{j.N, j.P, j.K, j.Temperature, j.Humidity, j.PH, j.Rainfall},
		RecommendedCrop: j.RecommendedCrop,
	}
	return nil
}
