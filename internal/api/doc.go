// Package api implements the HTTP surface of the sensor relay.
//
// This package provides:
//   - The dashboard WebSocket endpoint, handed to the broadcast hub
//   - Health and status endpoints for operators
//   - Stored reading history when the storage backend supports it
//   - Prometheus exposition at /metrics
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Graceful Degradation
//
// The server runs whether or not the broker is reachable. Status reports
// the broker state; dashboards stay connected and receive frames once the
// relay reconnects.
package api
