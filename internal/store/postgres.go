package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/cropwise/pkg/models"
)

const selectColumns = `id, timestamp, n, p, k, temperature, humidity, ph, rainfall, recommended_crop`

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec *models.PredictionRecord) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	f := rec.Features
	err = conn.QueryRow(ctx,
		`INSERT INTO predictions (timestamp, n, p, k, temperature, humidity, ph, rainfall, recommended_crop)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		rec.Timestamp.UTC(), f[0], f[1], f[2], f[3], f[4], f[5], f[6], rec.RecommendedCrop,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	return s.query(ctx,
		`SELECT `+selectColumns+` FROM predictions ORDER BY id DESC LIMIT $1`, limit)
}

func (s *PostgresStore) All(ctx context.Context) ([]models.PredictionRecord, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM predictions ORDER BY id DESC`)
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]models.PredictionRecord, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	records := []models.PredictionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (models.PredictionRecord, error) {
	var r models.PredictionRecord
	f := &r.Features
	err := row.Scan(&r.ID, &r.Timestamp, &f[0], &f[1], &f[2], &f[3], &f[4], &f[5], &f[6], &r.RecommendedCrop)
	r.Timestamp = r.Timestamp.UTC()
	return r, err
}
