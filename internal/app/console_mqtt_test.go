package app

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/relabs-tech/osc_bridge/internal/bridge"
	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

func TestConsolePrinters(t *testing.T) {
	payload, err := json.Marshal(bridge.Report{
		Angles:      orientation.AngleTriple{Yaw: 45, Pitch: 10, Roll: -5},
		Destination: "127.0.0.1:9000",
		At:          time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := printAngles(&out, payload); err != nil {
		t.Fatalf("printAngles: %v", err)
	}
	want := "[SENT] YAW=  45.00  PITCH=  10.00  ROLL=  -5.00  -> 127.0.0.1:9000\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := printSuspension(&out, []byte(`{"suspended":true,"reason":"headphones off"}`)); err != nil {
		t.Fatalf("printSuspension: %v", err)
	}
	if out.String() != "[SENS] suspended (headphones off)\n" {
		t.Errorf("got %q", out.String())
	}

	if err := printAngles(&out, []byte("{")); err == nil {
		t.Error("malformed payload should fail")
	}
}
