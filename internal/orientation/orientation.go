// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

// AngleTriple is the yaw/pitch/roll output of a single sample, in degrees.
type AngleTriple struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// AxisEnablement selects which axes are reported. A disabled axis is
// always reported as exactly 0.
type AxisEnablement struct {
	Yaw   bool `json:"yaw"`
	Pitch bool `json:"pitch"`
	Roll  bool `json:"roll"`
}

// AllAxes enables yaw, pitch and roll.
var AllAxes = AxisEnablement{Yaw: true, Pitch: true, Roll: true}

// Sample is one rotation reading from the wearable.
type Sample struct {
	Quaternion Quaternion
	Timestamp  time.Time
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Convert re-orients sample by reference and extracts yaw/pitch/roll.
//
//	yaw   = -zRotation
//	pitch =  xRotation
//	roll  =  yRotation
func Convert(sample, reference Quaternion, enabled AxisEnablement) AngleTriple {
	effective := sample.Multiply(reference)

	var t AngleTriple
	if enabled.Yaw {
		t.Yaw = positiveZero(Degrees(-effective.ZRotation()))
	}
	if enabled.Pitch {
		t.Pitch = positiveZero(Degrees(effective.XRotation()))
	}
	if enabled.Roll {
		t.Roll = positiveZero(Degrees(effective.YRotation()))
	}
	return t
}

// positiveZero maps -0 to 0 so a zero angle goes out with a clear sign bit.
func positiveZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
