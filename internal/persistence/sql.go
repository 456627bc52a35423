package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/sensor-relay/internal/infrastructure/database"
	"github.com/nerrad567/sensor-relay/internal/telemetry"
)

// SQLRepository stores readings in the sensor_readings table of a SQLite
// or PostgreSQL database. Queries use ? placeholders and are rebound for
// the connection's dialect.
type SQLRepository struct {
	db *database.DB
}

// NewSQLRepository creates a repository over a migrated database.
func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// AppendReading inserts one row.
func (r *SQLRepository) AppendReading(ctx context.Context, reading telemetry.Reading, recordedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Dialect().Rebind("INSERT INTO sensor_readings (light, sound, motion, recorded_at) VALUES (?, ?, ?, ?)"),
		reading.Light(),
		reading.Sound(),
		reading.Motion(),
		recordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting sensor reading: %w", err)
	}
	return nil
}

// Recent returns the newest readings first.
func (r *SQLRepository) Recent(ctx context.Context, limit int) ([]StoredReading, error) {
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		r.db.Dialect().Rebind(`SELECT id, light, sound, motion, recorded_at
		 FROM sensor_readings
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sensor readings: %w", err)
	}
	defer rows.Close()

	readings := make([]StoredReading, 0, limit)
	for rows.Next() {
		var sr StoredReading
		if err := rows.Scan(&sr.ID, &sr.Light, &sr.Sound, &sr.Motion, &sr.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning sensor reading: %w", err)
		}
		sr.RecordedAt = sr.RecordedAt.UTC()
		readings = append(readings, sr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor readings: %w", err)
	}

	return readings, nil
}
