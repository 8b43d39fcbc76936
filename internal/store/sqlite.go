package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kiranshivaraju/cropwise/pkg/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS predictions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	n REAL NOT NULL,
	p REAL NOT NULL,
	k REAL NOT NULL,
	temperature REAL NOT NULL,
	humidity REAL NOT NULL,
	ph REAL NOT NULL,
	rainfall REAL NOT NULL,
	recommended_crop TEXT NOT NULL
)`

// SQLiteStore implements the Store interface on an embedded SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// predictions table exists. Opening an initialized database is a no-op.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, rec *models.PredictionRecord) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	f := rec.Features
	res, err := conn.ExecContext(ctx,
		`INSERT INTO predictions (timestamp, n, p, k, temperature, humidity, ph, rainfall, recommended_crop)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano), f[0], f[1], f[2], f[3], f[4], f[5], f[6], rec.RecommendedCrop)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read prediction id: %w", err)
	}
	rec.ID = id
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM predictions ORDER BY id DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) All(ctx context.Context) ([]models.PredictionRecord, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM predictions ORDER BY id DESC`)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]models.PredictionRecord, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	records := []models.PredictionRecord{}
	for rows.Next() {
		var (
			r  models.PredictionRecord
			ts string
			f  = &r.Features
		)
		if err := rows.Scan(&r.ID, &ts, &f[0], &f[1], &f[2], &f[3], &f[4], &f[5], &f[6], &r.RecommendedCrop); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
