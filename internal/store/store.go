package store

import (
	"context"

	"github.com/kiranshivaraju/cropwise/pkg/models"
)

// Store persists prediction records. Every call acquires its own connection
// and releases it before returning. Implementations must be safe for
// concurrent use.
type Store interface {
	Ping(ctx context.Context) error

	// Append inserts rec and sets rec.ID to the storage-assigned id.
	Append(ctx context.Context, rec *models.PredictionRecord) error
	// Recent returns up to limit records, most recent id first.
	Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error)
	// All returns every record, most recent id first.
	All(ctx context.Context) ([]models.PredictionRecord, error)

	Close() error
}
