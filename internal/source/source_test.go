package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

type fakeSink struct {
	mu        sync.Mutex
	samples   []orientation.Sample
	suspended []bool
}

func (s *fakeSink) PushSample(sample orientation.Sample) {
	s.mu.Lock()
	s.samples = append(s.samples, sample)
	s.mu.Unlock()
}

func (s *fakeSink) SetSuspended(v bool) {
	s.mu.Lock()
	s.suspended = append(s.suspended, v)
	s.mu.Unlock()
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

func TestDecodeRotation(t *testing.T) {
	now := time.Unix(100, 0)

	s, err := DecodeRotation([]byte(`{"x":0.5,"y":0.5,"z":-0.5,"w":0.5,"timestamp_ms":1700000000000}`), now)
	if err != nil {
		t.Fatalf("DecodeRotation: %v", err)
	}
	want := orientation.Quaternion{X: 0.5, Y: 0.5, Z: -0.5, W: 0.5}
	if s.Quaternion != want {
		t.Errorf("quaternion = %+v, want %+v", s.Quaternion, want)
	}
	if s.Timestamp.UnixMilli() != 1700000000000 {
		t.Errorf("timestamp = %v", s.Timestamp)
	}

	s, err = DecodeRotation([]byte(`{"x":1,"y":0,"z":0,"w":0}`), now)
	if err != nil {
		t.Fatalf("DecodeRotation: %v", err)
	}
	if !s.Timestamp.Equal(now) {
		t.Errorf("missing timestamp should default to now, got %v", s.Timestamp)
	}

	for _, bad := range []string{`not json`, `{"x":0,"y":0,"z":0,"w":0}`, `{}`} {
		if _, err := DecodeRotation([]byte(bad), now); !errors.Is(err, errBadRotation) {
			t.Errorf("DecodeRotation(%s) err = %v, want errBadRotation", bad, err)
		}
	}
}

func TestEncodeRotationRoundTrip(t *testing.T) {
	in := orientation.Sample{
		Quaternion: orientation.Quaternion{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9},
		Timestamp:  time.UnixMilli(1234567),
	}
	payload, err := EncodeRotation(in)
	if err != nil {
		t.Fatalf("EncodeRotation: %v", err)
	}
	out, err := DecodeRotation(payload, time.Now())
	if err != nil {
		t.Fatalf("DecodeRotation: %v", err)
	}
	if out.Quaternion != in.Quaternion || !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestMQTTHandleRoutesTopics(t *testing.T) {
	m := NewMQTT(MQTTOptions{RotationTopic: "bridge/rotation", SuspendedTopic: "bridge/suspended"})
	sink := &fakeSink{}

	m.handle(sink, "bridge/rotation", []byte(`{"x":1,"y":0,"z":0,"w":0}`))
	m.handle(sink, "bridge/rotation", []byte(`garbage`))
	m.handle(sink, "bridge/suspended", []byte(`{"suspended":true,"reason":"device removed"}`))
	m.handle(sink, "bridge/suspended", []byte(`{"suspended":false}`))
	m.handle(sink, "other/topic", []byte(`{"x":1}`))

	if sink.count() != 1 {
		t.Errorf("pushed %d samples, want 1", sink.count())
	}
	if m.badPayloads != 1 {
		t.Errorf("bad payloads = %d, want 1", m.badPayloads)
	}
	if len(sink.suspended) != 2 || !sink.suspended[0] || sink.suspended[1] {
		t.Errorf("suspended calls = %v, want [true false]", sink.suspended)
	}
}

func TestSimulatedRunsUntilCancelled(t *testing.T) {
	src := NewSimulated(5 * time.Millisecond)

	if _, ok := src.State().(Idle); !ok {
		t.Fatalf("initial state = %v, want idle", src.State())
	}

	sink := &fakeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, sink) }()

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d samples after 2s", sink.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := src.State().(Connected); !ok {
		t.Errorf("running state = %v, want connected", src.State())
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}

	if _, ok := src.State().(Idle); !ok {
		t.Errorf("final state = %v, want idle", src.State())
	}
	if len(sink.suspended) != 1 || sink.suspended[0] {
		t.Errorf("simulated source should clear suspension once, got %v", sink.suspended)
	}
}

func TestStateStrings(t *testing.T) {
	cases := map[State]string{
		Idle{}:                        "idle",
		Connecting{Target: "tcp://b"}: "connecting to tcp://b",
		Connected{Target: "tcp://b"}:  "connected to tcp://b",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("%T.String() = %q, want %q", s, s.String(), want)
		}
	}
}
