package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	mw "github.com/kiranshivaraju/cropwise/internal/api/middleware"
	"github.com/kiranshivaraju/cropwise/internal/api/response"
	"github.com/kiranshivaraju/cropwise/internal/features"
	"github.com/kiranshivaraju/cropwise/internal/model"
	"github.com/kiranshivaraju/cropwise/internal/recommend"
)

const maxPredictBody = 1 << 20

// Recommender defines the interface the predict handler depends on.
type Recommender interface {
	Recommend(ctx context.Context, raw map[string]any) (*recommend.Recommendation, error)
}

// NewPredictHandler returns an http.HandlerFunc for POST /predict.
func NewPredictHandler(svc Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := decodeObject(http.MaxBytesReader(w, r.Body, maxPredictBody))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Request body must be a JSON object", nil)
			return
		}

		rec, err := svc.Recommend(r.Context(), raw)
		if err != nil {
			requestID, _ := mw.GetRequestID(r)
			var fieldErr *features.FieldError
			switch {
			case errors.As(err, &fieldErr):
				response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", fieldErr.Error(), nil)
			case errors.Is(err, model.ErrInference):
				slog.Error("prediction failed", "error", err, "request_id", requestID)
				response.Error(w, http.StatusInternalServerError, "INFERENCE_FAILED",
					"Prediction failed", nil)
			default:
				slog.Error("prediction failed", "error", err, "request_id", requestID)
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, rec)
	}
}

// decodeObject reads exactly one JSON object. Numbers are kept as
// json.Number so the validator sees the client's literal.
func decodeObject(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("body is not a JSON object")
	}
	return obj, nil
}
