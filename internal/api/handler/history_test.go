package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/cropwise/internal/ledger"
	"github.com/kiranshivaraju/cropwise/pkg/models"
)

// --- mock history ---

type mockHistory struct {
	records   []models.PredictionRecord
	err       error
	lastLimit int
}

func (m *mockHistory) Recent(_ context.Context, limit int) ([]models.PredictionRecord, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *mockHistory) Export(_ context.Context, w io.Writer) error {
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, "id,recommended_crop\n2,maize\n1,rice\n")
	return err
}

func sampleRecords() []models.PredictionRecord {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.PredictionRecord{
		{ID: 2, Timestamp: ts.Add(time.Minute), Features: models.FeatureVector{1, 2, 3, 4, 5, 6, 7}, RecommendedCrop: "maize"},
		{ID: 1, Timestamp: ts, Features: models.FeatureVector{90, 42, 43, 20.8, 82, 6.5, 202.9}, RecommendedCrop: "rice"},
	}
}

// --- tests ---

func TestRecentHandler_Success(t *testing.T) {
	h := NewRecentHandler(&mockHistory{records: sampleRecords()})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Recent []map[string]any `json:"recent"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(body.Recent))
	}
	first := body.Recent[0]
	if first["id"] != float64(2) || first["recommended_crop"] != "maize" || first["N"] != float64(1) {
		t.Errorf("unexpected first record: %v", first)
	}
}

func TestRecentHandler_EmptyIsArray(t *testing.T) {
	h := NewRecentHandler(&mockHistory{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"recent\":[]}\n" {
		t.Errorf("unexpected body %q", got)
	}
}

func TestRecentHandler_LimitClamping(t *testing.T) {
	tests := []struct {
		query    string
		expected int
	}{
		{"", ledger.DefaultRecentLimit},
		{"?limit=5", 5},
		{"?limit=0", 1},
		{"?limit=-3", 1},
		{"?limit=100", 100},
		{"?limit=5000", 100},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m := &mockHistory{}
			h := NewRecentHandler(m)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent"+tt.query, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if m.lastLimit != tt.expected {
				t.Errorf("expected limit %d, got %d", tt.expected, m.lastLimit)
			}
		})
	}
}

func TestRecentHandler_InvalidLimit(t *testing.T) {
	h := NewRecentHandler(&mockHistory{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent?limit=ten", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code, _ := parseErr(t, rec); code != "INVALID_REQUEST" {
		t.Errorf("expected INVALID_REQUEST, got %s", code)
	}
}

func TestRecentHandler_StorageError(t *testing.T) {
	h := NewRecentHandler(&mockHistory{err: fmt.Errorf("%w: disk gone", ledger.ErrStorage)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if code, _ := parseErr(t, rec); code != "STORAGE_ERROR" {
		t.Errorf("expected STORAGE_ERROR, got %s", code)
	}
}

func TestExportHandler_Success(t *testing.T) {
	h := NewExportHandler(&mockHistory{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download_predictions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="predictions.csv"` {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if got := rec.Body.String(); got != "id,recommended_crop\n2,maize\n1,rice\n" {
		t.Errorf("unexpected body %q", got)
	}
}

func TestExportHandler_StorageError(t *testing.T) {
	h := NewExportHandler(&mockHistory{err: fmt.Errorf("%w: locked", ledger.ErrStorage)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download_predictions", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error body, got %q", ct)
	}
	if code, _ := parseErr(t, rec); code != "STORAGE_ERROR" {
		t.Errorf("expected STORAGE_ERROR, got %s", code)
	}
}

func TestExportHandler_UnclassifiedError(t *testing.T) {
	h := NewExportHandler(&mockHistory{err: errors.New("odd")})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download_predictions", nil))

	if code, _ := parseErr(t, rec); code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", code)
	}
}
