package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// PointQuerier answers nearest-point queries against a solid. A point inside
// the solid is its own nearest point.
type PointQuerier interface {
	ClosestPoint(p r3.Vec) r3.Vec
}

// RectangleSampleScale places the four edge samples at 2/3 of the
// half-extents, inside the patch rather than on its rim.
const RectangleSampleScale = 2.0 / 3.0

// planeAxes returns the two local axes spanning the rectangle whose normal
// is the given axis index (0=X, 1=Y, 2=Z).
func planeAxes(axis int) (u, v r3.Vec, hu, hv func(r3.Vec) float64) {
	switch axis {
	case 0:
		return AxisY, AxisZ, func(h r3.Vec) float64 { return h.Y }, func(h r3.Vec) float64 { return h.Z }
	case 2:
		return AxisX, AxisY, func(h r3.Vec) float64 { return h.X }, func(h r3.Vec) float64 { return h.Y }
	default:
		return AxisX, AxisZ, func(h r3.Vec) float64 { return h.X }, func(h r3.Vec) float64 { return h.Z }
	}
}

// rectangleFrame resolves the world-space in-plane axes and half-extents of
// the rectangle through center with the given normal axis.
func rectangleFrame(orientation r3.Rotation, halfExtents r3.Vec, axis int) (u, v r3.Vec, hu, hv float64) {
	lu, lv, fu, fv := planeAxes(axis)
	return orientation.Rotate(lu), orientation.Rotate(lv), math.Abs(fu(halfExtents)), math.Abs(fv(halfExtents))
}

// RectangleCorners returns the four corners of the oriented rectangle, in
// winding order so that corners[i] and corners[(i+1)%4] share an edge.
func RectangleCorners(center r3.Vec, orientation r3.Rotation, halfExtents r3.Vec, axis int) [4]r3.Vec {
	u, v, hu, hv := rectangleFrame(orientation, halfExtents, axis)
	du, dv := r3.Scale(hu, u), r3.Scale(hv, v)
	return [4]r3.Vec{
		r3.Add(r3.Add(center, du), dv),
		r3.Add(r3.Sub(center, du), dv),
		r3.Sub(r3.Sub(center, du), dv),
		r3.Sub(r3.Add(center, du), dv),
	}
}

// RectangleSamples returns the centre of the rectangle followed by its four
// edge-midpoint samples, scaled in by RectangleSampleScale.
func RectangleSamples(center r3.Vec, orientation r3.Rotation, halfExtents r3.Vec, axis int) [5]r3.Vec {
	u, v, hu, hv := rectangleFrame(orientation, halfExtents, axis)
	du := r3.Scale(hu*RectangleSampleScale, u)
	dv := r3.Scale(hv*RectangleSampleScale, v)
	return [5]r3.Vec{
		center,
		r3.Add(center, du),
		r3.Sub(center, du),
		r3.Add(center, dv),
		r3.Sub(center, dv),
	}
}

// ClosestPointEstimationFromRectangle approximates the pair of nearest points
// between an oriented rectangular patch and a solid. It asks the solid for
// its nearest point to the rectangle centre and to each of the four edge
// samples and keeps the closest pair. Five queries instead of an exact
// patch-to-solid solve; the palm patch is small next to the objects it
// touches.
//
// halfExtents are the box half-extents in local space; the component along
// axis (the rectangle normal) is ignored. Returns the sample on the
// rectangle and the matching point on the solid.
func ClosestPointEstimationFromRectangle(center r3.Vec, orientation r3.Rotation, halfExtents r3.Vec, q PointQuerier, axis int) (rectPoint, objectPoint r3.Vec) {
	samples := RectangleSamples(center, orientation, halfExtents, axis)

	best := math.Inf(1)
	for _, s := range samples {
		p := q.ClosestPoint(s)
		if d := r3.Norm2(r3.Sub(p, s)); d < best {
			best = d
			rectPoint, objectPoint = s, p
		}
	}
	return rectPoint, objectPoint
}

// ClosestPointToRectangleFace classifies point against the quad described
// by corners. If the point's projection falls inside the quad it is
// returned unchanged; otherwise the nearest point on the four finite edges
// is returned.
//
// Inside-ness is decided from the nearest corner only: the point's
// projections onto the two edges leaving that corner must both lie between
// the corner and the respective neighbour.
func ClosestPointToRectangleFace(corners [4]r3.Vec, point r3.Vec) r3.Vec {
	nearest := 0
	nearestDist := math.Inf(1)
	for i, c := range corners {
		if d := r3.Norm2(r3.Sub(point, c)); d < nearestDist {
			nearest, nearestDist = i, d
		}
	}

	corner := corners[nearest]
	prev := corners[(nearest+3)%4]
	next := corners[(nearest+1)%4]

	onPrev, _ := ClosestPointOnLine(point, corner, prev)
	onNext, _ := ClosestPointOnLine(point, corner, next)
	if isBetween(corner, prev, onPrev) && isBetween(corner, next, onNext) {
		return point
	}

	var result r3.Vec
	bestDist := math.Inf(1)
	for i := range corners {
		p := ClosestPointOnSegment(point, corners[i], corners[(i+1)%4])
		if d := r3.Norm2(r3.Sub(point, p)); d < bestDist {
			bestDist = d
			result = p
		}
	}
	return result
}

// ProjectOntoPlane drops point onto the plane through origin with the given
// unit normal.
func ProjectOntoPlane(point, origin, normal r3.Vec) r3.Vec {
	d := r3.Dot(r3.Sub(point, origin), normal)
	return r3.Sub(point, r3.Scale(d, normal))
}
