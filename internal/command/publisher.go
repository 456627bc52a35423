package command

import (
	"context"
	"errors"
	"fmt"
)

// Sender is the broker side of the publisher; *mqtt.Client satisfies it.
type Sender interface {
	Publish(topic string, payload []byte) error
}

// Logger interface for publisher logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Observer counts publish outcomes. result is "sent", "invalid" or "failed".
type Observer interface {
	CommandPublished(name string, result string)
}

// Publisher sends validated commands to the device command topic.
//
// It is fire-and-forget: no correlation ids, no retries, and nothing is
// reported back to the dashboard that asked. The device answers on its
// ack topic and the most recent ack wins.
type Publisher struct {
	sender   Sender
	topic    string
	logger   Logger
	observer Observer
}

// NewPublisher creates a Publisher for topic (usually Topics.Command()).
func NewPublisher(sender Sender, topic string, logger Logger) *Publisher {
	return &Publisher{
		sender: sender,
		topic:  topic,
		logger: logger,
	}
}

// SetObserver sets the metrics observer. Call before use.
func (p *Publisher) SetObserver(o Observer) {
	p.observer = o
}

// Publish validates cmd and publishes it.
//
// Unknown commands are logged at debug; missing values and broker
// failures at warn. The returned error is informational only.
func (p *Publisher) Publish(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := cmd.Payload()
	if err != nil {
		if errors.Is(err, ErrUnknownCommand) {
			p.logger.Debug("dropping unknown command", "command", string(cmd.Name))
		} else {
			p.logger.Warn("dropping invalid command", "command", string(cmd.Name), "error", err)
		}
		p.observe(cmd.Name, "invalid")
		return err
	}

	if err := p.sender.Publish(p.topic, payload); err != nil {
		p.logger.Warn("command publish failed",
			"command", string(cmd.Name),
			"topic", p.topic,
			"error", err,
		)
		p.observe(cmd.Name, "failed")
		return fmt.Errorf("publishing %s: %w", cmd.Name, err)
	}

	p.logger.Info("command published", "command", string(cmd.Name), "topic", p.topic)
	p.observe(cmd.Name, "sent")
	return nil
}

// RequestConfig asks the device to report its current configuration.
func (p *Publisher) RequestConfig(ctx context.Context) error {
	return p.Publish(ctx, Command{Name: GetConfig})
}

func (p *Publisher) observe(name Name, result string) {
	if p.observer == nil {
		return
	}
	if !name.Known() {
		name = "unknown"
	}
	p.observer.CommandPublished(string(name), result)
}
