package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kiranshivaraju/cropwise/internal/api/response"
	"github.com/kiranshivaraju/cropwise/internal/ledger"
	"github.com/kiranshivaraju/cropwise/pkg/models"
)

const exportFilename = "predictions.csv"

// HistoryReader serves logged predictions.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

// Exporter writes the full prediction history as CSV.
type Exporter interface {
	Export(ctx context.Context, w io.Writer) error
}

type recentResponse struct {
	Recent []models.PredictionRecord `json:"recent"`
}

// NewRecentHandler returns an http.HandlerFunc for GET /recent.
func NewRecentHandler(svc HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := ledger.DefaultRecentLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be an integer", nil)
				return
			}
			limit = min(max(n, 1), ledger.DefaultRecentLimit)
		}

		records, err := svc.Recent(r.Context(), limit)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		if records == nil {
			records = []models.PredictionRecord{}
		}

		response.JSON(w, recentResponse{Recent: records})
	}
}

// NewExportHandler returns an http.HandlerFunc for GET /download_predictions.
// The export is buffered so a storage failure still yields a clean JSON error.
func NewExportHandler(svc Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := svc.Export(r.Context(), &buf); err != nil {
			writeStorageError(w, err)
			return
		}
		response.Attachment(w, "text/csv", exportFilename, buf.Bytes())
	}
}

func writeStorageError(w http.ResponseWriter, err error) {
	slog.Error("prediction history read failed", "error", err)
	if errors.Is(err, ledger.ErrStorage) {
		response.Error(w, http.StatusInternalServerError, "STORAGE_ERROR",
			"Prediction history is unavailable", nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"An unexpected error occurred", nil)
}
