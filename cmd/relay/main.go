// Sensor Relay - bridges a field sensor device on an MQTT broker to live
// dashboards over WebSockets, storing significant readings along the way.
//
// Inbound: broker -> classifier -> {reading store, dashboard hub}.
// Outbound: dashboard command -> validation -> <prefix>/cmd on the broker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/sensor-relay/internal/api"
	"github.com/nerrad567/sensor-relay/internal/command"
	"github.com/nerrad567/sensor-relay/internal/hub"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/logging"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/metrics"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensor-relay/internal/panel"
	"github.com/nerrad567/sensor-relay/internal/persistence"
	"github.com/nerrad567/sensor-relay/internal/relay"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds draining the store queue on exit.
const shutdownTimeout = 10 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown. Only startup failures are errors; a
// broker or store that is unreachable later is logged and retried.
func run(ctx context.Context, args []string) error {
	configPath, showVersion, err := parseFlags(args)
	if err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("sensor-relay %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	// Use default logger until config is loaded
	log := logging.Default(version)
	log.Info("starting sensor relay",
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	m := metrics.New()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		log.Info("closing storage", "backend", store.backend)
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing storage", "error", closeErr)
		}
	}()
	if err := store.HealthCheck(ctx); err != nil {
		// Readings still flow to dashboards; the recorder logs each failed write.
		log.Warn("storage unreachable at startup", "backend", store.backend, "error", err)
	} else {
		log.Info("storage ready", "backend", store.backend, "history", store.history != nil)
	}

	topics := mqtt.NewTopics(cfg.Device.TopicPrefix)

	router := relay.NewRouter(log.Component("relay"))
	router.SetObserver(m)

	broker := mqtt.New(cfg.MQTT, topics, router.HandleMessage)
	broker.SetLogger(log.Component("mqtt"))
	broker.SetObserver(m)

	publisher := command.NewPublisher(broker, topics.Command(), log.Component("command"))
	publisher.SetObserver(m)

	dashboards := hub.New(cfg.WebSocket, publisher, log.Component("hub"))
	dashboards.SetObserver(m)
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		dashboards.Run(hubCtx)
		close(hubDone)
	}()
	defer func() {
		stopHub()
		<-hubDone
	}()

	// Subscribers are independent; neither sees the other's outcome.
	router.Subscribe("hub", dashboards)

	var recorder *persistence.Recorder
	if store.repo != nil {
		recorder = persistence.NewRecorder(store.repo, cfg.Storage.QueueSize, cfg.StorageWriteTimeout(), log.Component("persistence"))
		recorder.SetObserver(m)
		recorder.Start()
		router.Subscribe("recorder", recorder)
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if closeErr := recorder.Close(drainCtx); closeErr != nil {
				log.Warn("store queue not drained", "error", closeErr)
			}
		}()
	} else {
		log.Info("reading storage disabled")
	}

	var dashboardPage http.Handler
	if cfg.API.Panel.Enabled {
		dashboardPage, err = panel.Handler(cfg.API.Panel.Dir, cfg.WebSocket.Path)
		if err != nil {
			return fmt.Errorf("loading dashboard page: %w", err)
		}
	}

	server, err := api.New(api.Deps{
		Config:         cfg.API,
		WebSocketPath:  cfg.WebSocket.Path,
		Logger:         log.Component("api"),
		Dashboards:     dashboards,
		Broker:         broker,
		StorageBackend: store.backend,
		History:        store.history,
		DBStats:        store.dbStats,
		WriteStats:     store.writeStats,
		Metrics:        m.Handler(),
		Panel:          dashboardPage,
		Version:        version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server listening",
		"address", server.Addr(),
		"websocket", cfg.WebSocket.Path,
		"panel", cfg.API.Panel.Enabled,
	)

	if err := broker.Start(ctx); err != nil {
		return fmt.Errorf("starting MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := broker.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. MQTT (no more inbound events)
	// 2. API server
	// 3. Recorder drain
	// 4. Hub (closes dashboard sockets)
	// 5. Storage

	return nil
}

// parseFlags reads --config and --version.
// The config path falls back to RELAY_CONFIG, then the default.
func parseFlags(args []string) (string, bool, error) {
	fs := pflag.NewFlagSet("sensor-relay", pflag.ContinueOnError)
	configFlag := fs.StringP("config", "c", "", "path to config file (env RELAY_CONFIG)")
	versionFlag := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return "", false, err
	}

	return getConfigPath(*configFlag), *versionFlag, nil
}

// getConfigPath returns the configuration file path.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("RELAY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
