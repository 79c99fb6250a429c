package orientation

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Axis names one of the three reported angles.
type Axis int

const (
	AxisYaw Axis = iota
	AxisPitch
	AxisRoll
)

func (a Axis) String() string {
	switch a {
	case AxisYaw:
		return "yaw"
	case AxisPitch:
		return "pitch"
	case AxisRoll:
		return "roll"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis accepts "yaw", "pitch" or "roll" (any case).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaw":
		return AxisYaw, nil
	case "pitch":
		return AxisPitch, nil
	case "roll":
		return AxisRoll, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// Axes is the live axis enablement. Toggles come from the UI side while the
// sender loads a snapshot per sample; all three flags live in one word so a
// load is always consistent.
type Axes struct {
	bits atomic.Uint32
}

// NewAxes returns Axes initialized to e.
func NewAxes(e AxisEnablement) *Axes {
	a := &Axes{}
	a.Store(e)
	return a
}

// Load returns the current enablement.
func (a *Axes) Load() AxisEnablement {
	b := a.bits.Load()
	return AxisEnablement{
		Yaw:   b&(1<<AxisYaw) != 0,
		Pitch: b&(1<<AxisPitch) != 0,
		Roll:  b&(1<<AxisRoll) != 0,
	}
}

// Store replaces all three flags at once.
func (a *Axes) Store(e AxisEnablement) {
	var b uint32
	if e.Yaw {
		b |= 1 << AxisYaw
	}
	if e.Pitch {
		b |= 1 << AxisPitch
	}
	if e.Roll {
		b |= 1 << AxisRoll
	}
	a.bits.Store(b)
}

// Set toggles a single axis.
func (a *Axes) Set(axis Axis, enabled bool) {
	mask := uint32(1) << axis
	for {
		old := a.bits.Load()
		next := old &^ mask
		if enabled {
			next |= mask
		}
		if a.bits.CompareAndSwap(old, next) {
			return
		}
	}
}
