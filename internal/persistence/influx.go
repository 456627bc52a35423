package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/sensor-relay/internal/telemetry"
)

// Measurement is the InfluxDB measurement readings are written to.
const Measurement = "sensor_readings"

// PointWriter is the write side of an InfluxDB client; *influxdb.Client
// satisfies it.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) error
}

// InfluxRepository writes readings as points tagged with the device prefix.
type InfluxRepository struct {
	writer PointWriter
	device string
}

// NewInfluxRepository creates a repository tagging points with device.
func NewInfluxRepository(writer PointWriter, device string) *InfluxRepository {
	return &InfluxRepository{writer: writer, device: device}
}

// AppendReading queues a point. The client batches writes, so a nil error
// means accepted rather than durable.
func (r *InfluxRepository) AppendReading(ctx context.Context, reading telemetry.Reading, recordedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.writer.WritePoint(Measurement,
		map[string]string{"device": r.device},
		map[string]interface{}{
			"light":  reading.Light(),
			"sound":  reading.Sound(),
			"motion": reading.Motion(),
		},
		recordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing influx point: %w", err)
	}
	return nil
}
