// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

// MockSource generates a smoothly changing head rotation, standing in for
// a simulated wearable.
type MockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock source whose motion starts now.
func NewMockSource() *MockSource {
	return &MockSource{start: time.Now(), now: time.Now}
}

// Next returns the rotation for the current instant. The output is already
// expressed in the device frame, i.e. it is pre-multiplied by the inverse of
// FlipX so that Convert with the default reference yields the generated
// angles.
func (m *MockSource) Next() Sample {
	t := m.now()
	elapsed := t.Sub(m.start).Seconds()

	pitch := 15 * math.Cos(elapsed*0.7)
	roll := 20 * math.Sin(elapsed)
	yaw := math.Mod(elapsed*30, 360) - 180

	q := FromEuler(radians(pitch), radians(roll), radians(-yaw))
	// FlipX is its own inverse up to sign.
	return Sample{Quaternion: q.Multiply(FlipX), Timestamp: t}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
