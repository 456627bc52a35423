// Package persistence decides which readings are worth keeping and writes
// them to the configured store.
//
// The Recorder subscribes to the classified event stream. Readings that
// pass ShouldStore are queued to a single worker goroutine, which calls
// Repository.AppendReading with a server-assigned UTC timestamp. Storage
// never blocks or affects the dashboard broadcast: a full queue drops the
// reading and a failed write is logged and counted.
//
// Repositories:
//   - SQLRepository: SQLite or PostgreSQL through database.DB (supports History)
//   - InfluxRepository: InfluxDB points in the sensor_readings measurement
//   - RedisRepository: capped stream plus latest-value keys
package persistence
