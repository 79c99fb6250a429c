package app

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/osc_bridge/internal/bridge"
)

// anglePublisher mirrors every transmitted triple to an MQTT topic so
// dashboards can follow what the synth receives.
type anglePublisher struct {
	broker, clientID, topic string

	reports chan bridge.Report
	dropped atomic.Uint64
}

func newAnglePublisher(broker, clientID, topic string) *anglePublisher {
	return &anglePublisher{
		broker:   broker,
		clientID: clientID,
		topic:    topic,
		reports:  make(chan bridge.Report, 64),
	}
}

// offer is installed as the transmitter's OnSent hook; it must not block
// the send loop, so reports are dropped when the publisher falls behind.
func (p *anglePublisher) offer(r bridge.Report) {
	select {
	case p.reports <- r:
	default:
		p.dropped.Add(1)
	}
}

func (p *anglePublisher) run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(p.broker).
		SetClientID(p.clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-ctx.Done():
		return nil
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		// The mirror is for dashboards; losing it must not stop output.
		log.Printf("angles: mqtt connect %s failed, mirror disabled: %v", p.broker, err)
		return nil
	}
	defer func() {
		client.Disconnect(250)
		if n := p.dropped.Load(); n > 0 {
			log.Printf("angles: %d reports dropped while the broker was slow", n)
		}
	}()
	log.Printf("angles: mirroring sent angles to %s on %s", p.topic, p.broker)

	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-p.reports:
			payload, err := json.Marshal(r)
			if err != nil {
				log.Printf("angles: json marshal error: %v", err)
				continue
			}
			// QoS 0: a late angle is worthless, never wait on the broker.
			t := client.Publish(p.topic, 0, false, payload)
			if !t.WaitTimeout(100 * time.Millisecond) {
				continue
			}
			if err := t.Error(); err != nil {
				log.Printf("angles: publish error: %v", err)
			}
		}
	}
}
