package orientation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Quaternion is a rotation in (x, y, z, w) order.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Identity is the no-op rotation.
var Identity = Quaternion{W: 1}

// FlipX is a half turn about x, the default reference frame offset of the
// wearable.
var FlipX = Quaternion{X: 1}

// Multiply returns the Hamilton product q * r.
func (q Quaternion) Multiply(r Quaternion) Quaternion {
	return Quaternion{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// XRotation is the rotation about the x axis in radians.
func (q Quaternion) XRotation() float64 {
	return math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))
}

// YRotation is the rotation about the y axis in radians. The asin argument
// is clamped so non-unit input cannot produce NaN.
func (q Quaternion) YRotation() float64 {
	v := 2 * (q.W*q.Y - q.Z*q.X)
	if v >= 1 {
		return math.Pi / 2
	}
	if v <= -1 {
		return -math.Pi / 2
	}
	return math.Asin(v)
}

// ZRotation is the rotation about the z axis in radians.
func (q Quaternion) ZRotation() float64 {
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

// FromEuler builds a quaternion from rotations about x, y and z (radians),
// applied in z-y-x order. It is the inverse of the three rotation getters.
func FromEuler(x, y, z float64) Quaternion {
	cx, sx := math.Cos(x/2), math.Sin(x/2)
	cy, sy := math.Cos(y/2), math.Sin(y/2)
	cz, sz := math.Cos(z/2), math.Sin(z/2)

	return Quaternion{
		X: sx*cy*cz - cx*sy*sz,
		Y: cx*sy*cz + sx*cy*sz,
		Z: cx*cy*sz - sx*sy*cz,
		W: cx*cy*cz + sx*sy*sz,
	}
}

// ParseQuaternion parses "x,y,z,w".
func ParseQuaternion(s string) (Quaternion, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Quaternion{}, fmt.Errorf("quaternion %q: want 4 comma-separated values, got %d", s, len(parts))
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Quaternion{}, fmt.Errorf("quaternion %q: component %d: %w", s, i, err)
		}
		v[i] = f
	}
	return Quaternion{X: v[0], Y: v[1], Z: v[2], W: v[3]}, nil
}

func (q Quaternion) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", q.X, q.Y, q.Z, q.W)
}
