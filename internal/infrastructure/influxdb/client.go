package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
)

const (
	pingTimeout = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Stats counts points handed to the write API and asynchronous failures.
type Stats struct {
	Queued uint64
	Failed uint64
}

// Client is a write-only InfluxDB v2 connection for sensor readings.
//
// Points are batched by the underlying write API. Delivery failures are
// reported through SetOnError, never to the caller of WritePoint.
// Safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	// mu serialises WritePoint against Close so no point reaches a closed write API.
	mu     sync.RWMutex
	closed bool

	onError atomic.Pointer[func(error)]
	queued  atomic.Uint64
	failed  atomic.Uint64
	done    chan struct{}
}

// New opens a batching write API for cfg.Bucket. It does not contact
// the server; reachability is reported by HealthCheck. Timestamps are sent with millisecond precision, matching the resolution
// of recorded readings.
func New(cfg config.InfluxDBConfig) *Client {
	opts := influxdb2.DefaultOptions().
		SetPrecision(time.Millisecond).
		SetBatchSize(uint(defaultBatchSize)).
		SetFlushInterval(uint(defaultFlushInterval.Milliseconds()))
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(uint(cfg.BatchSize)) // #nosec G115 -- checked positive
	}
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint((time.Duration(cfg.FlushInterval) * time.Second).Milliseconds())) // #nosec G115 -- checked positive
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		done:     make(chan struct{}),
	}
	go c.forwardErrors(c.writeAPI.Errors())

	return c
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

// forwardErrors drains the write API's error channel into the callback.
func (c *Client) forwardErrors(errs <-chan error) {
	for {
		select {
		case <-c.done:
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			c.failed.Add(1)
			if cb := c.onError.Load(); cb != nil {
				(*cb)(err)
			}
		}
	}
}

// SetOnError registers the callback for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	if callback == nil {
		c.onError.Store(nil)
		return
	}
	c.onError.Store(&callback)
}

// IsConnected returns false once Close has been called.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := ping(checkCtx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Stats returns write counters since New.
func (c *Client) Stats() Stats {
	return Stats{Queued: c.queued.Load(), Failed: c.failed.Load()}
}

// Close flushes pending points and releases the client. Safe to call twice.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.writeAPI.Flush()
	close(c.done)
	c.client.Close()
	return nil
}
