package bridge

import (
	"math"

	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// ChangeGate suppresses samples whose angles match the last transmitted
// triple. With Epsilon == 0 any bit-level difference counts as a change.
type ChangeGate struct {
	Epsilon float64
}

// ShouldSend reports whether candidate differs from lastSent. A nil
// lastSent means nothing has been sent yet.
func (g ChangeGate) ShouldSend(candidate orientation.AngleTriple, lastSent *orientation.AngleTriple) bool {
	if lastSent == nil {
		return true
	}
	return g.differs(candidate.Yaw, lastSent.Yaw) ||
		g.differs(candidate.Pitch, lastSent.Pitch) ||
		g.differs(candidate.Roll, lastSent.Roll)
}

func (g ChangeGate) differs(a, b float64) bool {
	if g.Epsilon > 0 {
		// NaN compares false on both sides, so treat it as a change explicitly.
		return math.IsNaN(a) || math.IsNaN(b) || math.Abs(a-b) > g.Epsilon
	}
	return a != b
}
