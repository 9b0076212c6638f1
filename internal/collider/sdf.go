package collider

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/layers"
)

// sdfProjectIterations bounds the gradient projection in SDF.ClosestPoint.
// Exact distance fields converge in one step; the rest are for bounds-only
// fields produced by CSG operations.
const sdfProjectIterations = 4

// sdfGradientStep is the central-difference step for surface normals (metres).
const sdfGradientStep = 1e-5

// SDF is a collider defined by a signed distance field, positioned by a
// world translation.
type SDF struct {
	base
	solid    sdf.SDF3
	Position r3.Vec
}

// NewSDF wraps an sdfx solid as a collider placed at position.
func NewSDF(id ID, body *Body, layer layers.Layer, solid sdf.SDF3, position r3.Vec) *SDF {
	return &SDF{base: base{id: id, body: body, layer: layer}, solid: solid, Position: position}
}

// Distance returns the signed distance from p to the surface; negative inside.
func (s *SDF) Distance(p r3.Vec) float64 {
	local := r3.Sub(p, s.Position)
	return s.solid.Evaluate(v3.Vec{X: local.X, Y: local.Y, Z: local.Z})
}

// Bounds returns the solid's bounding box in world space.
func (s *SDF) Bounds() r3.Box {
	bb := s.solid.BoundingBox()
	return r3.Box{
		Min: r3.Add(s.Position, r3.Vec{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Min.Z}),
		Max: r3.Add(s.Position, r3.Vec{X: bb.Max.X, Y: bb.Max.Y, Z: bb.Max.Z}),
	}
}

// ClosestPoint projects p onto the zero level set along the field gradient.
func (s *SDF) ClosestPoint(p r3.Vec) r3.Vec {
	d := s.Distance(p)
	if d <= 0 || math.IsNaN(d) {
		return p
	}
	step := r3.Vec{X: sdfGradientStep, Y: sdfGradientStep, Z: sdfGradientStep}
	q := p
	for i := 0; i < sdfProjectIterations && d > geometry.Epsilon; i++ {
		n := geometry.SafeUnit(r3.Gradient(q, step, s.Distance), r3.Vec{})
		if n == (r3.Vec{}) {
			break
		}
		q = r3.Sub(q, r3.Scale(d, n))
		d = s.Distance(q)
	}
	return q
}

// MoveTo places the solid's origin at center.
func (s *SDF) MoveTo(center r3.Vec) { s.Position = center }

// NewSDFCylinder is a convenience for an upright (Z axis) cylinder solid
// centred at position, such as a bottle or handle.
func NewSDFCylinder(id ID, body *Body, layer layers.Layer, height, radius float64, position r3.Vec) (*SDF, error) {
	solid, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, err
	}
	return NewSDF(id, body, layer, solid, position), nil
}
