package hub

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/sensor-relay/internal/command"
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// Client is one dashboard connection.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, buffer int) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, buffer),
	}
}

// ID returns the process-unique client id.
func (c *Client) ID() string {
	return c.id
}

// close is called only by the hub goroutine once the client has left the
// registry.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
// On connect the device is asked for its configuration so the new
// dashboard can render current settings.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, h.cfg.SendBuffer)
	if !h.Register(c) {
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump reads command frames until the connection fails.
func (h *Hub) readPump(c *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.Unregister(c)
		c.conn.Close()
	}()

	if err := h.commands.RequestConfig(ctx); err != nil {
		h.logger.Debug("config request on connect failed", "client_id", c.id, "error", err)
	}

	c.conn.SetReadLimit(int64(h.cfg.MaxMessageSize))
	pingInterval := time.Duration(h.cfg.PingInterval) * time.Second
	pongWait := time.Duration(h.cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "client_id", c.id, "error", err)
			} else {
				h.logger.Debug("websocket closed", "client_id", c.id, "error", err)
			}
			return
		}
		// Any client message resets the read deadline.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))

		if msgType != websocket.TextMessage {
			continue
		}
		h.handleCommand(ctx, c, message)
	}
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, frame []byte) {
	cmd, err := command.Parse(frame)
	if err != nil {
		if errors.Is(err, command.ErrUnknownCommand) {
			h.logger.Debug("ignoring unknown command", "client_id", c.id, "error", err)
		} else {
			h.logger.Warn("ignoring invalid command frame", "client_id", c.id, "error", err)
		}
		return
	}
	// Validation and broker failures are logged by the publisher.
	_ = h.commands.Publish(ctx, cmd) //nolint:errcheck // Fire-and-forget
}

// writePump writes queued frames and keepalive pings.
func (h *Hub) writePump(c *Client) {
	pingInterval := time.Duration(h.cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(h.cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
