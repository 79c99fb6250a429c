package app

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/relabs-tech/osc_bridge/internal/bridge"
	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("output %q does not contain %q", out.String(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonitorPrintsOrientation(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := conn.LocalAddr().String()

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewMonitor(out).Serve(ctx, conn) }()

	sender, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sender.Close()

	datagram, err := osc.NewMessage(bridge.AddressOrientation, float32(12.5), float32(-3), float32(0)).MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := sender.Write(datagram); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitForOutput(t, out, "YAW=  12.50  PITCH=  -3.00  ROLL=   0.00")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop after cancellation")
	}
}

// The monitor receives what a running bridge sends.
func TestBridgeToMonitor(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewMonitor(out).Serve(ctx, conn)

	b := bridge.New(bridge.Settings{Axes: orientation.AxisEnablement{Pitch: true}})
	if _, err := b.ApplyEdit("127.0.0.1", strconv.Itoa(port)); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	go b.Run(ctx)

	// Pitch only: yaw and roll must arrive as zero.
	b.PushSample(orientation.Sample{Quaternion: orientation.FlipX, Timestamp: time.Now()})
	waitForOutput(t, out, "YAW=   0.00  PITCH=   0.00  ROLL=   0.00")
}
