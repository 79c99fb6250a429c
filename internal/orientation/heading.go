package orientation

import (
	"math"
	"sync/atomic"
)

// Declination holds the latest magnetic declination in degrees (east
// positive). It is written by the GPS reader and read by the sender.
type Declination struct {
	bits  atomic.Uint64
	known atomic.Bool
}

// Set records a declination reading.
func (d *Declination) Set(deg float64) {
	d.bits.Store(math.Float64bits(deg))
	d.known.Store(true)
}

// Clear forgets the current reading.
func (d *Declination) Clear() {
	d.known.Store(false)
}

// Load returns the declination and whether one has been seen.
func (d *Declination) Load() (float64, bool) {
	if !d.known.Load() {
		return 0, false
	}
	return math.Float64frombits(d.bits.Load()), true
}

// TrueHeading corrects a magnetic heading by declination and normalizes the
// result into (-180, 180].
func TrueHeading(magnetic, declination float64) float64 {
	return NormalizeHeading(magnetic + declination)
}
