package mqtt

import (
	"context"
	"fmt"
)

// subscribeAll subscribes to every inbound device topic in one request.
//
// The session is clean, so this runs after each connect rather than
// relying on the broker to remember subscriptions.
func (c *Client) subscribeAll(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	filters := make(map[string]byte, 5)
	for _, topic := range c.topics.Inbound() {
		filters[topic] = byte(c.cfg.QoS)
	}

	token := c.paho().SubscribeMultiple(filters, c.wrapHandler(c.handler))
	if err := waitToken(ctx, token, defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	c.getLogger().Debug("mqtt subscribed", "topics", c.topics.Inbound())
	return nil
}
