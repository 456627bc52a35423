package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint queues one point. It never blocks on the network; failures
// arrive on the SetOnError callback. After Close it returns ErrNotConnected.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrNotConnected
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
	c.queued.Add(1)
	return nil
}
