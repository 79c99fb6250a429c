// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/osc_bridge/internal/config"
	"github.com/relabs-tech/osc_bridge/internal/orientation"
	"github.com/relabs-tech/osc_bridge/internal/source"
)

// RunSimulator publishes a synthetic head rotation to the MQTT rotation
// topic, standing in for the wearable when testing an mqtt-sourced bridge.
func RunSimulator(configPath string) error {
	if err := config.InitGlobal(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDSimulator)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("simulator: connected to MQTT broker at %s", cfg.MQTTBroker)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publish := func(topic string, payload []byte) {
		token := client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("simulator: publish error on %s: %v", topic, token.Error())
		}
	}

	if cfg.TopicSuspended != "" {
		payload, _ := json.Marshal(source.SuspensionPayload{Suspended: false})
		publish(cfg.TopicSuspended, payload)
	}

	src := orientation.NewMockSource()
	ticker := time.NewTicker(cfg.MockSampleInterval)
	defer ticker.Stop()
	logEvery := time.NewTicker(5 * time.Second)
	defer logEvery.Stop()

	count := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("simulator: stopped after %d samples", count)
			return nil
		case <-logEvery.C:
			log.Printf("simulator: %d samples published to %s", count, cfg.TopicRotation)
		case <-ticker.C:
			payload, err := source.EncodeRotation(src.Next())
			if err != nil {
				log.Printf("simulator: json marshal error: %v", err)
				continue
			}
			publish(cfg.TopicRotation, payload)
			count++
		}
	}
}
