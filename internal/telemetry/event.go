package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the Event variants.
type Kind int

// Event kinds.
const (
	KindReading Kind = iota + 1
	KindAck
	KindConfig
)

// String returns the kind name used in logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindReading:
		return "reading"
	case KindAck:
		return "ack"
	case KindConfig:
		return "config"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a classified broker message.
//
// For KindReading, Reading is set. For KindAck and KindConfig, Raw holds
// the device payload exactly as received.
type Event struct {
	Kind       Kind
	Topic      string
	Reading    Reading
	Raw        []byte
	ObservedAt time.Time
}

// Frame returns the bytes sent to dashboards for this event.
func (e Event) Frame() ([]byte, error) {
	switch e.Kind {
	case KindReading:
		return e.Reading.MarshalJSON()
	case KindAck, KindConfig:
		return e.Raw, nil
	default:
		return nil, fmt.Errorf("telemetry: no frame for %s", e.Kind)
	}
}

// rule maps a topic suffix to the event it produces.
type rule struct {
	suffix  string
	kind    Kind
	channel Channel
}

// rules are checked in order; ack and config win over the sensor channels.
var rules = []rule{
	{suffix: "/ack", kind: KindAck},
	{suffix: "/config", kind: KindConfig},
	{suffix: "/light", kind: KindReading, channel: ChannelLight},
	{suffix: "/sound", kind: KindReading, channel: ChannelSound},
	{suffix: "/motion", kind: KindReading, channel: ChannelMotion},
}

// Classify turns a broker message into an Event.
//
// Matching is on the exact, case-sensitive topic suffix. The second result
// is false for topics outside the five device channels. Classify never
// fails on payload content: sensor payloads are taken as category strings
// and ack/config payloads are copied untouched.
func Classify(topic string, payload []byte, observedAt time.Time) (Event, bool) {
	for _, r := range rules {
		if !strings.HasSuffix(topic, r.suffix) {
			continue
		}

		ev := Event{
			Kind:       r.kind,
			Topic:      topic,
			ObservedAt: observedAt,
		}
		if r.kind == KindReading {
			ev.Reading = NewReading(r.channel, string(payload), observedAt)
		} else {
			ev.Raw = append([]byte(nil), payload...)
		}
		return ev, true
	}

	return Event{}, false
}
