package persistence

import (
	"context"
	"time"

	"github.com/nerrad567/sensor-relay/internal/telemetry"
)

// History page sizes shared by every store and the readings endpoint.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// StoredReading is one row read back from a store.
type StoredReading struct {
	ID         int64     `json:"id"`
	Light      string    `json:"light"`
	Sound      string    `json:"sound"`
	Motion     string    `json:"motion"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Repository persists readings.
//
// Implementations must be safe for use from one goroutine at a time; the
// Recorder never calls AppendReading concurrently.
type Repository interface {
	// AppendReading stores r. recordedAt is UTC.
	AppendReading(ctx context.Context, r telemetry.Reading, recordedAt time.Time) error
}

// History is implemented by repositories that can list stored readings.
type History interface {
	// Recent returns up to limit readings, newest first
	// (default 50, max 200).
	Recent(ctx context.Context, limit int) ([]StoredReading, error)
}

// clampLimit applies the default and maximum history page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
