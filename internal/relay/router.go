// Package relay routes classified broker messages to their subscribers.
package relay

import (
	"fmt"
	"time"

	"github.com/nerrad567/sensor-relay/internal/telemetry"
)

// Subscriber consumes events. HandleEvent must not block.
type Subscriber interface {
	HandleEvent(ev telemetry.Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ev telemetry.Event)

// HandleEvent calls f(ev).
func (f SubscriberFunc) HandleEvent(ev telemetry.Event) { f(ev) }

// Logger interface for router logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer counts routed messages.
type Observer interface {
	MessageReceived(kind string)
	SubscriberPanic(subscriber string)
}

type namedSubscriber struct {
	name string
	sub  Subscriber
}

// Router classifies inbound messages and delivers each event to every
// subscriber in registration order. Subscribers are independent: the
// order among them carries no meaning and a panic in one does not stop
// the rest.
type Router struct {
	subscribers []namedSubscriber
	logger      Logger
	observer    Observer
	now         func() time.Time
}

// NewRouter creates a Router with no subscribers.
func NewRouter(logger Logger) *Router {
	return &Router{logger: logger, now: time.Now}
}

// Subscribe adds sub under name. Call before the broker connection starts.
func (r *Router) Subscribe(name string, sub Subscriber) {
	r.subscribers = append(r.subscribers, namedSubscriber{name: name, sub: sub})
}

// SetObserver sets the metrics observer.
func (r *Router) SetObserver(o Observer) {
	r.observer = o
}

// HandleMessage is the broker message handler. It never fails: unknown
// topics are logged and counted, everything else is dispatched.
func (r *Router) HandleMessage(topic string, payload []byte) error {
	ev, ok := telemetry.Classify(topic, payload, r.now())
	if !ok {
		r.logger.Debug("ignoring message on unrouted topic", "topic", topic)
		r.count("unknown")
		return nil
	}
	r.count(ev.Kind.String())

	for _, s := range r.subscribers {
		r.deliver(s, ev)
	}
	return nil
}

func (r *Router) deliver(s namedSubscriber, ev telemetry.Event) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("subscriber panicked",
				"subscriber", s.name,
				"topic", ev.Topic,
				"panic", fmt.Sprint(p),
			)
			if r.observer != nil {
				r.observer.SubscriberPanic(s.name)
			}
		}
	}()
	s.sub.HandleEvent(ev)
}

func (r *Router) count(kind string) {
	if r.observer != nil {
		r.observer.MessageReceived(kind)
	}
}
