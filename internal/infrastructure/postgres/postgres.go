// Package postgres connects to PostgreSQL (or TimescaleDB) through a pgx
// connection pool and exposes it as a database.DB for the shared SQL
// reading store and migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/database"
)

// ErrConnectionFailed wraps pool configuration failures.
var ErrConnectionFailed = errors.New("postgres: connection failed")

// Store owns the pgx pool and the database/sql view over it.
type Store struct {
	pool *pgxpool.Pool
	db   *database.DB
}

// Connect parses cfg.URL and builds the pool with MaxConns applied.
// Connections are dialled on first use, so a server that is down only
// shows up in HealthCheck and later queries.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing url: %w", ErrConnectionFailed, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns) // #nosec G115 -- small positive config value
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &Store{
		pool: pool,
		db:   database.Wrap(stdlib.OpenDBFromPool(pool), database.DialectPostgres),
	}, nil
}

// DB returns the database/sql handle sharing the pool.
func (s *Store) DB() *database.DB {
	return s.db
}

// HealthCheck pings the server through the pool.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

// Close releases the sql handle and the pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	err := s.db.Close()
	s.pool.Close()
	return err
}
