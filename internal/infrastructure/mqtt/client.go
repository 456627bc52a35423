package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
)

// State is the broker connection state owned by the Client.
type State int32

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the lower-case state name used in logs and /api/v1/status.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Client is the relay's single broker connection.
//
// It connects in the background, subscribes to the device topics on every
// successful connect, and reconnects on a fixed delay forever until its
// context is cancelled. At most one reconnect loop is in flight at a time.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	cfg     config.MQTTConfig
	topics  Topics
	handler MessageHandler
	delay   time.Duration

	// newClient builds the underlying paho client. Replaced in tests.
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client

	// connMu guards client, ctx and cancel, which Start sets while
	// dashboards may already be publishing.
	connMu sync.RWMutex
	client pahomqtt.Client
	ctx    context.Context
	cancel context.CancelFunc

	state        atomic.Int32
	started      atomic.Bool
	reconnecting atomic.Bool
	wg           sync.WaitGroup

	logger   Logger
	observer Observer
	hookMu   sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives connection lifecycle signals for metrics.
type Observer interface {
	ConnectAttempt()
	ConnectionState(connected bool)
}

// MessageHandler is the callback signature for received messages.
//
// Handlers run on paho's delivery goroutine in broker order and should not
// block. A returned error is logged; a panic is recovered and logged.
type MessageHandler func(topic string, payload []byte) error

// New creates a Client for the device identified by topics.
// handler receives every message on the five inbound topics.
// Nothing touches the network until Start is called.
func New(cfg config.MQTTConfig, topics Topics, handler MessageHandler) *Client {
	delay := time.Duration(cfg.Reconnect.Delay) * time.Second
	if delay <= 0 {
		delay = 5 * time.Second
	}

	return &Client{
		cfg:       cfg,
		topics:    topics,
		handler:   handler,
		delay:     delay,
		newClient: pahomqtt.NewClient,
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// IsConnected reports whether the last connect attempt succeeded and no
// connection loss has been observed since.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// HealthCheck returns nil while connected and ErrNotConnected otherwise.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// Close stops the reconnect loop and disconnects from the broker.
// It is safe to call on a client that was never started.
func (c *Client) Close() error {
	if !c.started.Load() {
		return nil
	}

	c.connMu.RLock()
	cancel, client := c.cancel, c.client
	c.connMu.RUnlock()

	cancel()
	c.wg.Wait()

	// A connect token abandoned by the loop may still complete, so
	// disconnect whether or not the connection looks open.
	client.Disconnect(defaultDisconnectQuiesce)
	c.setState(StateDisconnected)

	return nil
}

// SetLogger sets a logger for connection and handler logging.
// If not set, the client is silent.
func (c *Client) SetLogger(logger Logger) {
	c.hookMu.Lock()
	c.logger = logger
	c.hookMu.Unlock()
}

// SetObserver sets the metrics observer.
func (c *Client) SetObserver(o Observer) {
	c.hookMu.Lock()
	c.observer = o
	c.hookMu.Unlock()
}

// paho returns the underlying client, or nil before Start.
func (c *Client) paho() pahomqtt.Client {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.client
}

func (c *Client) runContext() context.Context {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.ctx
}

func (c *Client) getLogger() Logger {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	if c.logger == nil {
		return nopLogger{}
	}
	return c.logger
}

func (c *Client) getObserver() Observer {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.observer
}

func (c *Client) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev == s {
		return
	}
	if o := c.getObserver(); o != nil {
		o.ConnectionState(s == StateConnected)
	}
}

// handleConnectionLost is paho's connection-lost hook.
func (c *Client) handleConnectionLost(err error) {
	c.setState(StateDisconnected)
	c.getLogger().Warn("mqtt connection lost", "error", err, "retry_in", c.delay)

	c.scheduleReconnect(true)
}

// wrapHandler wraps a MessageHandler with panic recovery and logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.getLogger().Error("MQTT handler panic recovered",
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.getLogger().Warn("MQTT handler returned error",
				"topic", msg.Topic(),
				"error", err,
			)
		}
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
