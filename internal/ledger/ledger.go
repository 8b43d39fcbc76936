// Package ledger keeps the append-only history of served predictions.
package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/kiranshivaraju/cropwise/internal/store"
	"github.com/kiranshivaraju/cropwise/pkg/models"
)

// DefaultRecentLimit bounds history queries that do not specify a limit.
const DefaultRecentLimit = 100

// ErrStorage wraps every read failure reported to callers.
var ErrStorage = errors.New("prediction storage unavailable")

// ExportHeader is the first row of every export.
var ExportHeader = []string{
	"id", "timestamp", "N", "P", "K", "temperature", "humidity", "ph", "rainfall", "recommended_crop",
}

// Ledger records predictions and serves them back.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

// New creates a Ledger over s.
func New(s store.Store) *Ledger {
	return &Ledger{store: s, now: time.Now}
}

// Append records one prediction. Failures are logged and swallowed: the ledger
// is diagnostic and must never fail the prediction it describes.
func (l *Ledger) Append(ctx context.Context, vec models.FeatureVector, crop string) {
	rec := &models.PredictionRecord{
		Timestamp:       l.now().UTC(),
		Features:        vec,
		RecommendedCrop: crop,
	}
	if err := l.store.Append(ctx, rec); err != nil {
		slog.Error("failed to log prediction", "error", err, "crop", crop)
		return
	}
	slog.Debug("prediction logged", "id", rec.ID, "crop", crop)
}

// Recent returns up to limit records, most recent first. A non-positive limit
// means DefaultRecentLimit.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	records, err := l.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return records, nil
}

// Export writes every record as CSV, most recent first, preceded by
// ExportHeader. Records are fully read before anything is written, so a
// storage failure leaves w untouched.
func (l *Ledger) Export(ctx context.Context, w io.Writer) error {
	records, err := l.store.All(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	row := make([]string, len(ExportHeader))
	for _, r := range records {
		row[0] = strconv.FormatInt(r.ID, 10)
		row[1] = r.Timestamp.UTC().Format(time.RFC3339Nano)
		for i, v := range r.Features {
			row[2+i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		row[9] = r.RecommendedCrop
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write export row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Ping reports whether the underlying store is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}
