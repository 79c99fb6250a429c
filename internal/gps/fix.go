package gps

import nmea "github.com/adrianmo/go-nmea"

// Fix is the subset of an RMC sentence the bridge cares about.
type Fix struct {
	Time         string  `json:"time"`      // e.g. "12:34:56"
	Date         string  `json:"date"`      // e.g. "06/12/25"
	Latitude     float64 `json:"lat"`       // decimal degrees
	Longitude    float64 `json:"lon"`       // decimal degrees
	Validity     string  `json:"validity"`  // "A" (valid) / "V" (void)
	Variation    float64 `json:"variation"` // magnetic variation, east positive
	HasVariation bool    `json:"has_variation"`
}

// Valid reports whether the receiver flagged the fix as usable.
func (f Fix) Valid() bool {
	return f.Validity == nmea.ValidRMC
}

// FixFromRMC extracts a Fix. The variation field is optional in RMC, so
// HasVariation tells an absent value apart from a genuine zero.
func FixFromRMC(m nmea.RMC) Fix {
	f := Fix{
		Time:      m.Time.String(),
		Date:      m.Date.String(),
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Validity:  string(m.Validity),
		Variation: m.Variation,
	}
	if len(m.Fields) > 9 && m.Fields[9] != "" {
		f.HasVariation = true
	}
	return f
}
