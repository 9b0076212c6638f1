package geometry

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-9

// Local axes of a bone or hand frame: X points to the side, Y to the back
// of the hand, Z along the bone towards the fingertip.
var (
	AxisX = r3.Vec{X: 1}
	AxisY = r3.Vec{Y: 1}
	AxisZ = r3.Vec{Z: 1}
)

// Identity is the zero rotation.
var Identity = r3.Rotation{Real: 1}

// SafeUnit returns the unit vector of v, or fallback when v is too short to
// normalise. r3.Unit returns NaNs for the zero vector.
func SafeUnit(v, fallback r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < Epsilon || math.IsNaN(n) {
		return fallback
	}
	return r3.Scale(1/n, v)
}

// Distance returns |a - b|.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(r3.Scale(1-t, a), r3.Scale(t, b))
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Inverse returns the rotation that undoes r. r must be a unit rotation.
func Inverse(r r3.Rotation) r3.Rotation {
	return r3.Rotation(quat.Conj(quat.Number(r)))
}

// Compose returns the rotation that applies b first, then a.
func Compose(a, b r3.Rotation) r3.Rotation {
	return r3.Rotation(quat.Mul(quat.Number(a), quat.Number(b)))
}

// Normalize rescales r to unit length. The zero quaternion becomes Identity.
func Normalize(r r3.Rotation) r3.Rotation {
	q := quat.Number(r)
	n := quat.Abs(q)
	if n < Epsilon || math.IsNaN(n) {
		return Identity
	}
	return r3.Rotation(quat.Scale(1/n, q))
}

// Nlerp interpolates between two rotations along the shorter arc and
// renormalises. It is adequate for the small per-frame deltas between
// consecutive tracking poses.
func Nlerp(a, b r3.Rotation, t float64) r3.Rotation {
	qa, qb := quat.Number(a), quat.Number(b)
	dot := qa.Real*qb.Real + qa.Imag*qb.Imag + qa.Jmag*qb.Jmag + qa.Kmag*qb.Kmag
	if dot < 0 {
		qb = quat.Scale(-1, qb)
	}
	q := quat.Add(quat.Scale(1-t, qa), quat.Scale(t, qb))
	return Normalize(r3.Rotation(q))
}

// Tilt rotates v by angle radians towards the direction toward, around the
// axis perpendicular to both. When v and toward are parallel there is no
// unique axis and v is returned unchanged.
func Tilt(v, toward r3.Vec, angle float64) r3.Vec {
	if angle == 0 {
		return v
	}
	axis := r3.Cross(v, toward)
	if r3.Norm(axis) < Epsilon {
		return v
	}
	return r3.Rotate(v, angle, r3.Unit(axis))
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
