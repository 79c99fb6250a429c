package gps

import (
	"fmt"
	"math"
	"strings"
	"testing"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// sentence wraps body in '$' and its NMEA checksum.
func sentence(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}

func TestHandleLineSetsDeclination(t *testing.T) {
	decl := &orientation.Declination{}
	r := NewReader(decl)

	r.HandleLine(sentence("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,E"))
	got, ok := decl.Load()
	if !ok || math.Abs(got-3.1) > 1e-9 {
		t.Fatalf("declination = %v, %v; want 3.1", got, ok)
	}

	r.HandleLine(sentence("GPRMC,123520,A,4807.038,N,01131.000,E,022.4,084.4,230394,004.5,W"))
	got, _ = decl.Load()
	if math.Abs(got+4.5) > 1e-9 {
		t.Errorf("west variation = %v, want -4.5", got)
	}
}

func TestHandleLineIgnoresUnusableSentences(t *testing.T) {
	decl := &orientation.Declination{}
	r := NewReader(decl)

	lines := []string{
		"",
		"garbage",
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,E*00", // bad checksum
		sentence("GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,E"),
		sentence("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,,"),
		sentence("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
	}
	for _, l := range lines {
		r.HandleLine(l)
	}

	if _, ok := decl.Load(); ok {
		t.Error("no usable variation was seen, declination must stay unknown")
	}

	void, err := nmea.Parse(lines[3])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if FixFromRMC(void.(nmea.RMC)).Valid() {
		t.Error("void fix reported as valid")
	}
	bare, err := nmea.Parse(lines[4])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f := FixFromRMC(bare.(nmea.RMC)); !f.Valid() || f.HasVariation {
		t.Errorf("fix = %+v, want valid without variation", f)
	}
}

func TestConsumeReadsUntilEOF(t *testing.T) {
	decl := &orientation.Declination{}
	r := NewReader(decl)

	input := strings.Join([]string{
		sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1"),
		sentence("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,001.0,E"),
		sentence("GPRMC,123520,A,4807.038,N,01131.000,E,022.4,084.4,230394,002.0,E"),
	}, "\r\n")

	if err := r.Consume(strings.NewReader(input)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got, ok := decl.Load(); !ok || math.Abs(got-2) > 1e-9 {
		t.Errorf("declination = %v, %v; want 2 from the last sentence", got, ok)
	}
}
