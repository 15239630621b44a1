// Package mqtt publishes to the MQTT broker that downstream systems
// (gate displays, dashboards, sync jobs) listen on for registration changes.
//
// The client connects with auto-reconnect, registers a retained Last Will on
// {prefix}/system/status so subscribers can tell when the gateway is gone,
// and publishes an online status on every (re)connect. It never subscribes.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().PersonEvent("created")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
