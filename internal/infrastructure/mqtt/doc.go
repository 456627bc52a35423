// Package mqtt manages the relay's single connection to the MQTT broker.
//
// This package manages:
//   - Background connect with a fixed retry delay, forever, until shutdown
//   - Exactly one reconnect loop in flight after a connection loss
//   - Subscription to the five device topics after every connect
//   - Fire-and-forget publishing of device commands
//   - Connection state for health and status reporting
//
// # Architecture
//
// The field device and the relay never talk directly; the broker sits
// between them:
//
//	Device ↔ MQTT Broker ↔ Relay ↔ Dashboards
//
// paho's automatic reconnect is disabled. The relay owns the retry policy
// so a dropped link is retried on a predictable cadence.
//
// # Usage
//
//	topics := mqtt.NewTopics(cfg.Device.TopicPrefix)
//	client := mqtt.New(cfg.MQTT, topics, router.HandleMessage)
//	client.SetLogger(logger.Component("mqtt"))
//	if err := client.Start(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err := client.Publish(topics.Command(), []byte(`{"command":"getConfig"}`))
package mqtt
