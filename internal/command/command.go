// Package command validates dashboard commands and forwards them to the
// device over the broker.
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Name is a device command name.
type Name string

// Commands the device firmware understands.
const (
	SetInterval       Name = "setInterval"
	SetLightThreshold Name = "setLightThreshold"
	SetSoundThreshold Name = "setSoundThreshold"
	GetConfig         Name = "getConfig"
)

// Validation errors. Use errors.Is() to check.
var (
	ErrMalformed      = errors.New("command: malformed frame")
	ErrUnknownCommand = errors.New("command: unknown command")
	ErrMissingValue   = errors.New("command: value required")
)

// Command is one request for the device.
type Command struct {
	Name  Name `json:"command"`
	Value *int `json:"value,omitempty"`
}

// New returns a command carrying value.
func New(name Name, value int) Command {
	return Command{Name: name, Value: &value}
}

// Known reports whether n is a command the device accepts.
func (n Name) Known() bool {
	switch n {
	case SetInterval, SetLightThreshold, SetSoundThreshold, GetConfig:
		return true
	}
	return false
}

// RequiresValue reports whether n must carry a value.
func (n Name) RequiresValue() bool {
	return n != GetConfig
}

// Validate checks the name is known and a value is present where required.
func (c Command) Validate() error {
	if !c.Name.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Name)
	}
	if c.Name.RequiresValue() && c.Value == nil {
		return fmt.Errorf("%w: %s", ErrMissingValue, c.Name)
	}
	return nil
}

// Payload renders the device wire form {"command":"...","value":N}.
// getConfig is always sent without a value.
func (c Command) Payload() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := c
	if !c.Name.RequiresValue() {
		out.Value = nil
	}
	return json.Marshal(out)
}

// Parse decodes and validates a dashboard text frame.
func Parse(frame []byte) (Command, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return Command{}, fmt.Errorf("%w: empty frame", ErrMalformed)
	}

	var cmd Command
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}
