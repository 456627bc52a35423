// Package telemetry defines the events the device produces and classifies
// raw broker messages into them.
//
// A message on <prefix>/light, <prefix>/sound or <prefix>/motion becomes a
// Reading with exactly one field populated. Messages on <prefix>/ack and
// <prefix>/config are carried as opaque payloads. Anything else is ignored.
package telemetry
