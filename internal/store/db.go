package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/cropwise/internal/config"
)

func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Open connects to the ledger backend selected by cfg. Postgres schemas are
// migrated; SQLite schemas are created in place.
func Open(ctx context.Context, cfg config.LedgerConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if err := RunMigrations(cfg.Database.URL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		pool, err := Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool), nil
	case config.DriverSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}
