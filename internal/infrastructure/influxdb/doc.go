// Package influxdb provides InfluxDB connectivity for reading storage.
//
// It wraps the official influxdb-client-go v2 library with a batched
// non-blocking write API and an error callback for writes that fail after
// they were queued. Nothing is dialled at construction, so a server that is
// down at startup only shows up in HealthCheck and the error callback.
//
// # Usage
//
//	client := influxdb.New(cfg.Storage.InfluxDB)
//	defer client.Close()
//
//	client.SetOnError(func(err error) { log.Warn("influx write failed", "error", err) })
//	client.WritePoint("sensor_readings", tags, fields, recordedAt)
//
// Writes are batched according to batch_size and flush_interval.
package influxdb
