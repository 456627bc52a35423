package mqtt

import (
	"context"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Start begins connecting in the background and returns immediately.
//
// The first attempt is made at once. Every failure is logged and retried
// after the fixed delay until ctx is cancelled or Close is called.
func (c *Client) Start(ctx context.Context) error {
	c.connMu.Lock()
	if c.started.Load() {
		c.connMu.Unlock()
		return ErrAlreadyStarted
	}

	opts := buildClientOptions(c.cfg)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.client = c.newClient(opts)
	c.started.Store(true)
	c.connMu.Unlock()

	c.scheduleReconnect(false)
	return nil
}

// scheduleReconnect starts the connect loop unless one is already running.
// When wait is true the loop sleeps the fixed delay before its first attempt.
func (c *Client) scheduleReconnect(wait bool) {
	if ctx := c.runContext(); ctx == nil || ctx.Err() != nil {
		return
	}
	if !c.reconnecting.CompareAndSwap(false, true) {
		c.getLogger().Debug("mqtt reconnect already in flight")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.connectLoop(wait)
	}()
}

// connectLoop retries until one connect-and-subscribe succeeds.
func (c *Client) connectLoop(wait bool) {
	ctx := c.runContext()

	for {
		if wait {
			timer := time.NewTimer(c.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				c.reconnecting.Store(false)
				return
			case <-timer.C:
			}
		}
		wait = true

		if ctx.Err() != nil {
			c.reconnecting.Store(false)
			return
		}

		err := c.connectOnce(ctx)
		if err == nil {
			break
		}

		c.setState(StateDisconnected)
		c.getLogger().Error("mqtt connect failed",
			"broker", brokerURL(c.cfg),
			"error", err,
			"retry_in", c.delay,
		)
	}

	c.reconnecting.Store(false)

	// A loss reported between the successful connect and the flag reset
	// above was dropped by scheduleReconnect; pick it up here.
	if c.State() == StateDisconnected {
		c.scheduleReconnect(true)
	}
}

// connectOnce makes a single connect attempt and subscribes to the
// inbound topics. The state is Connected only if both succeed.
func (c *Client) connectOnce(ctx context.Context) error {
	c.setState(StateConnecting)
	if o := c.getObserver(); o != nil {
		o.ConnectAttempt()
	}

	client := c.paho()
	token := client.Connect()
	if err := waitToken(ctx, token, defaultConnectTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := c.subscribeAll(ctx); err != nil {
		client.Disconnect(defaultDisconnectQuiesce)
		return err
	}

	c.setState(StateConnected)
	c.getLogger().Info("mqtt connected",
		"broker", brokerURL(c.cfg),
		"prefix", c.topics.Prefix(),
	)
	return nil
}

// waitToken waits for token, the timeout, or ctx, whichever comes first.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timeout after %v", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
