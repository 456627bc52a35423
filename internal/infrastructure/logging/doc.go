// Package logging provides structured logging for the sensor relay.
//
// It wraps log/slog so every component logs with the same default
// fields (service, version) and a "component" attribute that names the
// subsystem (mqtt, hub, recorder, api).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	mqttLog := logger.Component("mqtt")
//	mqttLog.Info("connected", "broker", addr)
//
// Attributes named like credentials are masked.
package logging
