package orientation

import (
	"fmt"
	"math"
	"strings"
)

// WrapPolicy decides how converted angles are folded into a range before
// they are gated and sent.
type WrapPolicy int

const (
	// WrapNone passes angles through unchanged.
	WrapNone WrapPolicy = iota
	// WrapHalfTurn normalizes every axis into (-180, 180].
	WrapHalfTurn
	// WrapFold90 normalizes yaw into (-180, 180] and reflects pitch and roll
	// into [-90, 90].
	WrapFold90
)

func (p WrapPolicy) String() string {
	switch p {
	case WrapNone:
		return "none"
	case WrapHalfTurn:
		return "pm180"
	case WrapFold90:
		return "fold90"
	default:
		return fmt.Sprintf("wrap(%d)", int(p))
	}
}

// ParseWrapPolicy accepts "none", "pm180" or "fold90". Empty means none.
func ParseWrapPolicy(s string) (WrapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return WrapNone, nil
	case "pm180":
		return WrapHalfTurn, nil
	case "fold90":
		return WrapFold90, nil
	}
	return WrapNone, fmt.Errorf("unknown wrap policy %q (want none, pm180 or fold90)", s)
}

// Apply folds t according to the policy. Zero maps to zero, so disabled
// axes stay at exactly 0.
func (p WrapPolicy) Apply(t AngleTriple) AngleTriple {
	switch p {
	case WrapHalfTurn:
		return AngleTriple{
			Yaw:   NormalizeHeading(t.Yaw),
			Pitch: NormalizeHeading(t.Pitch),
			Roll:  NormalizeHeading(t.Roll),
		}
	case WrapFold90:
		return AngleTriple{
			Yaw:   NormalizeHeading(t.Yaw),
			Pitch: fold90(t.Pitch),
			Roll:  fold90(t.Roll),
		}
	}
	return t
}

// fold90 reflects an angle into [-90, 90]: 100 becomes 80, -135 becomes -45.
func fold90(deg float64) float64 {
	d := NormalizeHeading(deg)
	switch {
	case d > 90:
		return 180 - d
	case d < -90:
		return -180 - d
	}
	return d
}

// NormalizeHeading maps any angle into (-180, 180].
func NormalizeHeading(deg float64) float64 {
	if deg > -180 && deg <= 180 {
		return deg
	}
	d := math.Mod(deg, 360)
	if d <= -180 {
		d += 360
	}
	if d > 180 {
		d -= 360
	}
	return d
}
