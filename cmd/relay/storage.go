package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/nerrad567/sensor-relay/internal/api"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/database"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/influxdb"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/logging"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/postgres"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/redis"
	"github.com/nerrad567/sensor-relay/internal/persistence"
	"github.com/nerrad567/sensor-relay/migrations"
)

// storage is the opened reading store for the configured backend.
// repo is nil when storage is disabled; history is nil when the backend
// cannot list readings.
type storage struct {
	backend    string
	repo       persistence.Repository
	history    persistence.History
	dbStats    func() sql.DBStats
	writeStats func() api.WriteMetrics
	health     func(ctx context.Context) error
	closers    []func() error
}

// HealthCheck verifies the backend connection.
func (s *storage) HealthCheck(ctx context.Context) error {
	if s.health == nil {
		return nil
	}
	return s.health(ctx)
}

// Close releases the backend in reverse order of opening.
func (s *storage) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openStorage connects the backend named by cfg.Storage.Backend and runs
// migrations for the SQL engines. Only a bad configuration or a local
// SQLite failure is an error: network stores that are down at startup are
// built anyway and reported by HealthCheck.
func openStorage(ctx context.Context, cfg *config.Config, log *logging.Logger) (*storage, error) {
	backend := cfg.Storage.Backend

	switch backend {
	case config.StorageBackendSQLite:
		db, err := database.Open(database.Config{
			Path:        cfg.Storage.SQLite.Path,
			WALMode:     cfg.Storage.SQLite.WALMode,
			BusyTimeout: cfg.Storage.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		if err := db.Migrate(ctx, migrations.SQLite()); err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("running sqlite migrations: %w", err)
		}
		log.Info("database connected", "path", db.Path())
		return sqlStorage(backend, db, db.Close), nil

	case config.StorageBackendPostgres:
		store, err := postgres.Connect(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		s := sqlStorage(backend, store.DB(), store.Close)
		s.health = store.HealthCheck
		if err := store.DB().Migrate(ctx, migrations.Postgres()); err != nil {
			log.Warn("postgres migrations deferred", "error", err)
			s.closers = append(s.closers, migrateInBackground(store.DB(), migrations.Postgres(), cfg.ReconnectDelay(), log))
		} else {
			log.Info("postgres connected")
		}
		return s, nil

	case config.StorageBackendInfluxDB:
		client := influxdb.New(cfg.Storage.InfluxDB)
		client.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB client ready",
			"url", cfg.Storage.InfluxDB.URL,
			"org", cfg.Storage.InfluxDB.Org,
			"bucket", cfg.Storage.InfluxDB.Bucket,
		)
		return &storage{
			backend: backend,
			repo:    persistence.NewInfluxRepository(client, cfg.Device.TopicPrefix),
			health:  client.HealthCheck,
			writeStats: func() api.WriteMetrics {
				st := client.Stats()
				return api.WriteMetrics{Queued: st.Queued, Failed: st.Failed}
			},
			closers: []func() error{client.Close},
		}, nil

	case config.StorageBackendRedis:
		client := redis.New(cfg.Storage.Redis)
		log.Info("redis client ready", "addr", cfg.Storage.Redis.Addr, "stream", cfg.Storage.Redis.Stream)
		return &storage{
			backend: backend,
			repo:    persistence.NewRedisRepository(client.Redis(), cfg.Storage.Redis),
			health:  client.HealthCheck,
			closers: []func() error{client.Close},
		}, nil

	case config.StorageBackendNone:
		return &storage{backend: backend}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func sqlStorage(backend string, db *database.DB, closer func() error) *storage {
	repo := persistence.NewSQLRepository(db)
	return &storage{
		backend: backend,
		repo:    repo,
		history: repo,
		dbStats: db.Stats,
		health:  db.HealthCheck,
		closers: []func() error{closer},
	}
}

// migrateInBackground retries migrations every interval until they apply.
// The returned func stops the loop and waits for it.
func migrateInBackground(db *database.DB, src fs.FS, interval time.Duration, log *logging.Logger) func() error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := db.Migrate(ctx, src); err != nil {
				if ctx.Err() == nil {
					log.Warn("postgres migrations still pending", "error", err)
				}
				continue
			}
			log.Info("postgres connected, migrations applied")
			return
		}
	}()

	return func() error {
		cancel()
		<-done
		return nil
	}
}
