// Package config loads the relay configuration.
//
// Precedence, lowest first: Default(), the YAML file, RELAY_* environment
// variables. Validate collects every problem into one error, and a config
// that fails validation stops startup.
//
// Keep broker passwords and store tokens out of the file; set
// MQTT_PASS, RELAY_POSTGRES_URL, RELAY_INFLUXDB_TOKEN or
// RELAY_REDIS_PASSWORD instead.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	topics := mqtt.NewTopics(cfg.Device.TopicPrefix)
package config
