// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// RotationPayload is the JSON body of a rotation message.
type RotationPayload struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	W           float64 `json:"w"`
	TimestampMs int64   `json:"timestamp_ms,omitempty"`
}

// SuspensionPayload is the JSON body of a sensors-suspended message.
type SuspensionPayload struct {
	Suspended bool   `json:"suspended"`
	Reason    string `json:"reason,omitempty"`
}

var errBadRotation = errors.New("invalid rotation")

// EncodeRotation builds the payload published for a sample.
func EncodeRotation(s orientation.Sample) ([]byte, error) {
	q := s.Quaternion
	return json.Marshal(RotationPayload{
		X: q.X, Y: q.Y, Z: q.Z, W: q.W,
		TimestampMs: s.Timestamp.UnixMilli(),
	})
}

// DecodeRotation parses a rotation payload. Missing timestamps are
// replaced with now.
func DecodeRotation(payload []byte, now time.Time) (orientation.Sample, error) {
	var p RotationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return orientation.Sample{}, fmt.Errorf("%w: %w", errBadRotation, err)
	}
	q := orientation.Quaternion{X: p.X, Y: p.Y, Z: p.Z, W: p.W}
	for _, v := range []float64{q.X, q.Y, q.Z, q.W} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return orientation.Sample{}, fmt.Errorf("%w: non-finite component", errBadRotation)
		}
	}
	if q == (orientation.Quaternion{}) {
		return orientation.Sample{}, fmt.Errorf("%w: zero quaternion", errBadRotation)
	}

	ts := now
	if p.TimestampMs > 0 {
		ts = time.UnixMilli(p.TimestampMs)
	}
	return orientation.Sample{Quaternion: q, Timestamp: ts}, nil
}

// MQTTOptions configures an MQTT source.
type MQTTOptions struct {
	Broker         string
	ClientID       string
	RotationTopic  string
	SuspendedTopic string
}

// MQTT subscribes to rotation and suspension topics on a broker.
type MQTT struct {
	opts  MQTTOptions
	state stateBox

	badPayloads int
}

// NewMQTT returns an MQTT source. Nothing is opened until Run.
func NewMQTT(opts MQTTOptions) *MQTT {
	return &MQTT{opts: opts}
}

// State returns the current connection state.
func (m *MQTT) State() State {
	return m.state.load()
}

// Run connects, subscribes and forwards samples to sink until ctx is
// cancelled. The client reconnects on its own after a lost connection and
// resubscribes on every connect.
func (m *MQTT) Run(ctx context.Context, sink Sink) error {
	broker := m.opts.Broker
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(m.opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Printf("source: connected to MQTT broker at %s", broker)
		if err := m.subscribe(c, sink); err != nil {
			log.Printf("source: %v", err)
			return
		}
		m.state.set(Connected{Target: broker})
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("source: connection to %s lost: %v", broker, err)
		m.state.set(Connecting{Target: broker})
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		m.state.set(Connecting{Target: broker})
	})

	client := mqtt.NewClient(opts)
	m.state.set(Connecting{Target: broker})
	defer m.state.set(Idle{})

	token := client.Connect()
	select {
	case <-ctx.Done():
		client.Disconnect(250)
		return nil
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", broker, err)
	}

	<-ctx.Done()
	log.Println("source: disconnecting from MQTT broker")
	client.Disconnect(250)
	return nil
}

func (m *MQTT) subscribe(c mqtt.Client, sink Sink) error {
	topics := map[string]byte{m.opts.RotationTopic: 0}
	if m.opts.SuspendedTopic != "" {
		topics[m.opts.SuspendedTopic] = 1
	}

	token := c.SubscribeMultiple(topics, func(_ mqtt.Client, msg mqtt.Message) {
		m.handle(sink, msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Printf("source: subscribed to %s", m.opts.RotationTopic)
	return nil
}

// handle routes one inbound message. paho delivers messages from a single
// goroutine by default, so badPayloads needs no lock.
func (m *MQTT) handle(sink Sink, topic string, payload []byte) {
	switch topic {
	case m.opts.RotationTopic:
		s, err := DecodeRotation(payload, time.Now())
		if err != nil {
			m.badPayloads++
			if m.badPayloads == 1 || m.badPayloads%100 == 0 {
				log.Printf("source: dropping rotation payload (%d so far): %v", m.badPayloads, err)
			}
			return
		}
		sink.PushSample(s)

	case m.opts.SuspendedTopic:
		var p SuspensionPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			log.Printf("source: suspension payload unmarshal error: %v", err)
			return
		}
		if p.Suspended && p.Reason != "" {
			log.Printf("source: sensors suspended: %s", p.Reason)
		}
		sink.SetSuspended(p.Suspended)
	}
}
