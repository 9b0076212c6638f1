package geometry

import "gonum.org/v1/gonum/spatial/r3"

// ClosestPointOnLine projects point onto the infinite line through start
// and end. It also returns the line parameter t, where t=0 is start and
// t=1 is end. A degenerate line (start == end) yields start and t=0.
func ClosestPointOnLine(point, start, end r3.Vec) (r3.Vec, float64) {
	dir := r3.Sub(end, start)
	lenSq := r3.Norm2(dir)
	if lenSq < Epsilon*Epsilon {
		return start, 0
	}
	t := r3.Dot(r3.Sub(point, start), dir) / lenSq
	return r3.Add(start, r3.Scale(t, dir)), t
}

// ClosestPointOnSegment returns the point on the finite segment
// [start, end] nearest to point. This is the clamped form of
// ClosestPointOnLine and is the nearest-point query for capsule bones.
func ClosestPointOnSegment(point, start, end r3.Vec) r3.Vec {
	p, _ := ClosestPointOnSegmentParam(point, start, end)
	return p
}

// ClosestPointOnSegmentParam is ClosestPointOnSegment that also reports the
// clamped segment parameter in [0, 1].
func ClosestPointOnSegmentParam(point, start, end r3.Vec) (r3.Vec, float64) {
	_, t := ClosestPointOnLine(point, start, end)
	t = Clamp(t, 0, 1)
	return Lerp(start, end, t), t
}

// isBetween reports whether p, assumed to lie on the line through a and b,
// falls within the segment [a, b]. It compares squared distances so no
// square roots or angles are needed.
func isBetween(a, b, p r3.Vec) bool {
	ab := r3.Norm2(r3.Sub(b, a))
	return r3.Norm2(r3.Sub(p, a)) <= ab && r3.Norm2(r3.Sub(p, b)) <= ab
}
