package mqtt

import "errors"

// Errors returned by Client. Match with errors.Is.
var (
	// ErrNotConnected is returned by HealthCheck while the broker link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrNotStarted is returned when Publish is called before Start.
	ErrNotStarted = errors.New("mqtt: client not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("mqtt: client already started")

	// ErrConnectionFailed wraps a failed connect attempt.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when subscribing to the device topics fails.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidTopic is returned when an empty topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
