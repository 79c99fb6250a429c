package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/osc_bridge/internal/bridge"
	"github.com/relabs-tech/osc_bridge/internal/config"
	"github.com/relabs-tech/osc_bridge/internal/source"
)

// printAngles renders one mirrored report as a console line.
func printAngles(w io.Writer, payload []byte) error {
	var r bridge.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "[SENT] YAW=%7.2f  PITCH=%7.2f  ROLL=%7.2f  -> %s\n",
		r.Angles.Yaw, r.Angles.Pitch, r.Angles.Roll, r.Destination)
	return err
}

// printSuspension renders a suspended-flag message.
func printSuspension(w io.Writer, payload []byte) error {
	var p source.SuspensionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	state := "active"
	if p.Suspended {
		state = "suspended"
	}
	if p.Reason != "" {
		state += " (" + p.Reason + ")"
	}
	_, err := fmt.Fprintf(w, "[SENS] %s\n", state)
	return err
}

// RunConsoleMQTT follows a running bridge over MQTT: the angles it sent
// (TOPIC_ANGLES) and the sensors' suspended flag.
func RunConsoleMQTT(configPath string) error {
	if err := config.InitGlobal(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Get()
	if cfg.TopicAngles == "" {
		return fmt.Errorf("TOPIC_ANGLES is not set, the bridge publishes nothing to follow")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDBridge + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	subscribe := func(topic string, print func(io.Writer, []byte) error) error {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := print(os.Stdout, msg.Payload()); err != nil {
				log.Printf("console: %s unmarshal error: %v", topic, err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("console: subscribed to %s", topic)
		return nil
	}

	if err := subscribe(cfg.TopicAngles, printAngles); err != nil {
		return err
	}
	if cfg.TopicSuspended != "" {
		if err := subscribe(cfg.TopicSuspended, printSuspension); err != nil {
			return err
		}
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
