package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/logging"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensor-relay/internal/persistence"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Dashboards is the WebSocket side of the server; *hub.Hub satisfies it.
type Dashboards interface {
	http.Handler
	ClientCount() int
}

// BrokerStatus reports the broker connection; *mqtt.Client satisfies it.
type BrokerStatus interface {
	State() mqtt.State
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	WebSocketPath string
	Logger        *logging.Logger
	Dashboards    Dashboards
	Broker        BrokerStatus

	// StorageBackend names the configured store for status output.
	StorageBackend string
	// History serves /api/v1/readings; nil answers 501.
	History persistence.History
	// DBStats reports SQL pool statistics when the store is SQL backed.
	DBStats func() sql.DBStats
	// WriteStats reports queued and failed points for batching stores.
	WriteStats func() WriteMetrics

	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Panel serves the dashboard page under /panel/ when set.
	Panel   http.Handler
	Version string
}

// Server is the HTTP server of the relay.
type Server struct {
	cfg            config.APIConfig
	wsPath         string
	logger         *logging.Logger
	dashboards     Dashboards
	broker         BrokerStatus
	storageBackend string
	history        persistence.History
	dbStats        func() sql.DBStats
	writeStats     func() WriteMetrics
	metrics        http.Handler
	panel          http.Handler
	version        string
	startTime      time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dashboards == nil {
		return nil, fmt.Errorf("dashboard hub is required")
	}

	wsPath := deps.WebSocketPath
	if wsPath == "" {
		wsPath = "/ws"
	}

	return &Server{
		cfg:            deps.Config,
		wsPath:         wsPath,
		logger:         deps.Logger,
		dashboards:     deps.Dashboards,
		broker:         deps.Broker,
		storageBackend: deps.StorageBackend,
		history:        deps.History,
		dbStats:        deps.DBStats,
		writeStats:     deps.WriteStats,
		metrics:        deps.Metrics,
		panel:          deps.Panel,
		version:        deps.Version,
		startTime:      time.Now(),
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
// Bind errors (port in use) are returned; later serve errors are logged.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections. Hijacked WebSocket
// connections are not tracked here; the hub closes them.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
