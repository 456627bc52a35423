package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/sensor-relay/internal/infrastructure/mqtt"
)

// StatusResponse is the operator view of the relay.
type StatusResponse struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Broker        BrokerMetrics    `json:"broker"`
	Dashboards    DashboardMetrics `json:"dashboards"`
	Storage       StorageMetrics   `json:"storage"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// BrokerMetrics describes the broker connection.
type BrokerMetrics struct {
	Connected bool   `json:"connected"`
	State     string `json:"state"`
}

// DashboardMetrics contains WebSocket hub statistics.
type DashboardMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// StorageMetrics describes the reading store.
type StorageMetrics struct {
	Backend  string           `json:"backend"`
	History  bool             `json:"history"`
	Database *DatabaseMetrics `json:"database,omitempty"`
	Writes   *WriteMetrics    `json:"writes,omitempty"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// WriteMetrics counts points handed to a batching store and writes that
// failed after they were queued.
type WriteMetrics struct {
	Queued uint64 `json:"queued"`
	Failed uint64 `json:"failed"`
}

// handleStatus returns broker, dashboard and storage status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := StatusResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Broker: BrokerMetrics{State: "unknown"},
		Dashboards: DashboardMetrics{
			ConnectedClients: s.dashboards.ClientCount(),
		},
		Storage: StorageMetrics{
			Backend: s.storageBackend,
			History: s.history != nil,
		},
	}

	if s.broker != nil {
		state := s.broker.State()
		status.Broker = BrokerMetrics{
			Connected: state == mqtt.StateConnected,
			State:     state.String(),
		}
	}

	if s.dbStats != nil {
		dbStats := s.dbStats()
		status.Storage.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	if s.writeStats != nil {
		writes := s.writeStats()
		status.Storage.Writes = &writes
	}

	writeJSON(w, http.StatusOK, status)
}
