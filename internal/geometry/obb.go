package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// OrientedBox is a box with arbitrary 3D orientation.
//
// Parameters:
//   - Center: centre position (metres, world frame)
//   - Rotation: local-to-world rotation (unit quaternion)
//   - HalfExtents: half sizes along the local X, Y and Z axes (metres)
type OrientedBox struct {
	Center      r3.Vec
	Rotation    r3.Rotation
	HalfExtents r3.Vec
}

// Axis returns the world-space direction of local axis i (0=X, 1=Y, 2=Z).
func (b OrientedBox) Axis(i int) r3.Vec {
	switch i {
	case 0:
		return b.Rotation.Rotate(AxisX)
	case 1:
		return b.Rotation.Rotate(AxisY)
	default:
		return b.Rotation.Rotate(AxisZ)
	}
}

// ToLocal expresses a world point in the box frame.
func (b OrientedBox) ToLocal(p r3.Vec) r3.Vec {
	return Inverse(b.Rotation).Rotate(r3.Sub(p, b.Center))
}

// ToWorld maps a point from the box frame to world space.
func (b OrientedBox) ToWorld(p r3.Vec) r3.Vec {
	return r3.Add(b.Center, b.Rotation.Rotate(p))
}

// ClosestPoint returns the point of the solid box nearest to p. Points
// inside the box are returned unchanged.
func (b OrientedBox) ClosestPoint(p r3.Vec) r3.Vec {
	local := b.ToLocal(p)
	h := b.HalfExtents
	clamped := r3.Vec{
		X: Clamp(local.X, -h.X, h.X),
		Y: Clamp(local.Y, -h.Y, h.Y),
		Z: Clamp(local.Z, -h.Z, h.Z),
	}
	if clamped == local {
		return p
	}
	return b.ToWorld(clamped)
}

// Contains reports whether p lies inside or on the box.
func (b OrientedBox) Contains(p r3.Vec) bool {
	local := b.ToLocal(p)
	h := b.HalfExtents
	return math.Abs(local.X) <= h.X && math.Abs(local.Y) <= h.Y && math.Abs(local.Z) <= h.Z
}

// Bounds returns the world-space axis-aligned box enclosing b.
func (b OrientedBox) Bounds() r3.Box {
	// Each world extent is the sum of the projected local extents.
	ax, ay, az := b.Axis(0), b.Axis(1), b.Axis(2)
	h := b.HalfExtents
	ext := r3.Vec{
		X: math.Abs(ax.X)*h.X + math.Abs(ay.X)*h.Y + math.Abs(az.X)*h.Z,
		Y: math.Abs(ax.Y)*h.X + math.Abs(ay.Y)*h.Y + math.Abs(az.Y)*h.Z,
		Z: math.Abs(ax.Z)*h.X + math.Abs(ay.Z)*h.Y + math.Abs(az.Z)*h.Z,
	}
	return r3.Box{Min: r3.Sub(b.Center, ext), Max: r3.Add(b.Center, ext)}
}

// Capsule is a segment swept by a sphere.
type Capsule struct {
	Start  r3.Vec
	End    r3.Vec
	Radius float64
}

// ClosestPoint returns the point of the solid capsule nearest to p.
func (c Capsule) ClosestPoint(p r3.Vec) r3.Vec {
	axisPoint := ClosestPointOnSegment(p, c.Start, c.End)
	off := r3.Sub(p, axisPoint)
	d := r3.Norm(off)
	if d <= c.Radius {
		return p
	}
	return r3.Add(axisPoint, r3.Scale(c.Radius/d, off))
}

// Bounds returns the axis-aligned box enclosing the capsule.
func (c Capsule) Bounds() r3.Box {
	r := r3.Vec{X: c.Radius, Y: c.Radius, Z: c.Radius}
	return r3.Box{
		Min: r3.Sub(minVec(c.Start, c.End), r),
		Max: r3.Add(maxVec(c.Start, c.End), r),
	}
}

// Sphere is a ball.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

// ClosestPoint returns the point of the solid sphere nearest to p.
func (s Sphere) ClosestPoint(p r3.Vec) r3.Vec {
	off := r3.Sub(p, s.Center)
	d := r3.Norm(off)
	if d <= s.Radius {
		return p
	}
	return r3.Add(s.Center, r3.Scale(s.Radius/d, off))
}

// Bounds returns the axis-aligned box enclosing the sphere.
func (s Sphere) Bounds() r3.Box {
	r := r3.Vec{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return r3.Box{Min: r3.Sub(s.Center, r), Max: r3.Add(s.Center, r)}
}

// Overlaps reports whether two axis-aligned boxes intersect (touching
// counts as overlapping).
func Overlaps(a, b r3.Box) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Inflate grows a box by margin on every side.
func Inflate(b r3.Box, margin float64) r3.Box {
	m := r3.Vec{X: margin, Y: margin, Z: margin}
	return r3.Box{Min: r3.Sub(b.Min, m), Max: r3.Add(b.Max, m)}
}

func minVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}
