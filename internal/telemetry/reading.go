package telemetry

import (
	"encoding/json"
	"time"
)

// NotAvailable fills the sensor fields a Reading does not carry.
const NotAvailable = "N/A"

// Channel names one of the three sensor categories.
type Channel string

// Sensor channels, named after their topic suffix.
const (
	ChannelLight  Channel = "light"
	ChannelSound  Channel = "sound"
	ChannelMotion Channel = "motion"
)

// Known category values. The device publishes these strings verbatim;
// others are passed through unchanged.
const (
	LightVeryBright = "Very bright"
	LightVeryDark   = "Very dark"
	SoundQuiteLoud  = "Quite loud"
	SoundVeryLoud   = "Very loud!"
	MotionDetected  = "Motion detected!"
)

// Reading is one sensor observation. It is immutable once built.
type Reading struct {
	light      string
	sound      string
	motion     string
	observedAt time.Time
}

// NewReading builds a Reading with value on ch and NotAvailable elsewhere.
func NewReading(ch Channel, value string, observedAt time.Time) Reading {
	r := Reading{
		light:      NotAvailable,
		sound:      NotAvailable,
		motion:     NotAvailable,
		observedAt: observedAt,
	}
	switch ch {
	case ChannelLight:
		r.light = value
	case ChannelSound:
		r.sound = value
	case ChannelMotion:
		r.motion = value
	}
	return r
}

// Light returns the light category or NotAvailable.
func (r Reading) Light() string { return r.light }

// Sound returns the sound category or NotAvailable.
func (r Reading) Sound() string { return r.sound }

// Motion returns the motion category or NotAvailable.
func (r Reading) Motion() string { return r.motion }

// ObservedAt returns when the relay received the reading.
func (r Reading) ObservedAt() time.Time { return r.observedAt }

// readingJSON fixes the field order of the dashboard frame.
type readingJSON struct {
	Light  string `json:"light"`
	Sound  string `json:"sound"`
	Motion string `json:"motion"`
}

// MarshalJSON renders the dashboard frame
// {"light":"...","sound":"...","motion":"..."}.
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(readingJSON{
		Light:  r.light,
		Sound:  r.sound,
		Motion: r.motion,
	})
}
