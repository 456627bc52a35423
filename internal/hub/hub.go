package hub

import (
	"context"
	"sync/atomic"

	"github.com/nerrad567/sensor-relay/internal/command"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
	"github.com/nerrad567/sensor-relay/internal/telemetry"
)

const (
	defaultSendBuffer      = 256
	broadcastQueueSize     = 256
	defaultMaxMessageSize  = 8192
	defaultPingIntervalSec = 30
	defaultPongTimeoutSec  = 10
)

// CommandSink receives commands from dashboards; *command.Publisher
// satisfies it.
type CommandSink interface {
	Publish(ctx context.Context, cmd command.Command) error
	RequestConfig(ctx context.Context) error
}

// Logger interface for hub logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives hub activity for metrics.
type Observer interface {
	ClientsConnected(n int)
	FramesSent(n int)
	ClientEvicted()
}

type unregisterRequest struct {
	client *Client
	done   chan struct{}
}

// Hub is the broadcast actor.
type Hub struct {
	cfg      config.WebSocketConfig
	commands CommandSink
	logger   Logger
	observer Observer

	register   chan *Client
	unregister chan unregisterRequest
	broadcast  chan []byte
	stopped    chan struct{}

	clientCount atomic.Int64
}

// New creates a Hub. Zero values in cfg fall back to the defaults.
func New(cfg config.WebSocketConfig, commands CommandSink, logger Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingIntervalSec
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeoutSec
	}

	return &Hub{
		cfg:        cfg,
		commands:   commands,
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan unregisterRequest),
		broadcast:  make(chan []byte, broadcastQueueSize),
		stopped:    make(chan struct{}),
	}
}

// SetObserver sets the metrics observer. Call before Run.
func (h *Hub) SetObserver(o Observer) {
	h.observer = o
}

// Run owns the registry until ctx is cancelled, then closes every
// client. Pending broadcasts are abandoned.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[string]*Client)
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			for id, c := range clients {
				c.close()
				delete(clients, id)
			}
			h.setCount(0)
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			clients[c.id] = c
			h.setCount(len(clients))
			h.logger.Debug("dashboard connected", "client_id", c.id, "clients", len(clients))

		case req := <-h.unregister:
			if c, ok := clients[req.client.id]; ok {
				delete(clients, c.id)
				c.close()
				h.setCount(len(clients))
				h.logger.Debug("dashboard disconnected", "client_id", c.id, "clients", len(clients))
			}
			close(req.done)

		case frame := <-h.broadcast:
			sent := 0
			for id, c := range clients {
				select {
				case c.send <- frame:
					sent++
				default:
					delete(clients, id)
					c.close()
					h.logger.Warn("dashboard send buffer full, evicting", "client_id", id)
					if h.observer != nil {
						h.observer.ClientEvicted()
					}
				}
			}
			h.setCount(len(clients))
			if h.observer != nil && sent > 0 {
				h.observer.FramesSent(sent)
			}
		}
	}
}

// Register adds c to the registry. It returns false if the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

// Unregister removes c and returns once removal is complete; no
// broadcast issued afterwards reaches c. Unknown clients are ignored.
func (h *Hub) Unregister(c *Client) {
	req := unregisterRequest{client: c, done: make(chan struct{})}
	select {
	case h.unregister <- req:
	case <-h.stopped:
		return
	}
	select {
	case <-req.done:
	case <-h.stopped:
	}
}

// Broadcast queues frame for every registered client. The same byte slice
// is delivered to all clients and must not be modified afterwards.
func (h *Hub) Broadcast(frame []byte) {
	select {
	case h.broadcast <- frame:
	case <-h.stopped:
	}
}

// HandleEvent broadcasts the dashboard frame of ev.
func (h *Hub) HandleEvent(ev telemetry.Event) {
	frame, err := ev.Frame()
	if err != nil {
		h.logger.Warn("event has no dashboard frame", "kind", ev.Kind.String(), "error", err)
		return
	}
	h.Broadcast(frame)
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

func (h *Hub) setCount(n int) {
	h.clientCount.Store(int64(n))
	if h.observer != nil {
		h.observer.ClientsConnected(n)
	}
}
