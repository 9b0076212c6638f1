// Package collider provides the physics-side view the contact engine
// queries: colliders attached to rigid bodies, each able to answer
// nearest-point queries, and a Scene that returns broad-phase candidates.
package collider

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/layers"
)

// ID identifies a collider within a Scene.
type ID uint64

// Body is a rigid-body handle. Several colliders may share one body;
// contact relations are keyed by body.
type Body struct {
	ID   uint64
	Name string
}

// Collider is one collision shape.
type Collider interface {
	ID() ID
	// Body returns the owning rigid body, or nil for static scenery.
	Body() *Body
	Layer() layers.Layer
	// Bounds returns the world-space axis-aligned bounding box.
	Bounds() r3.Box
	// ClosestPoint returns the point of the solid nearest to p. A point
	// inside the solid is returned unchanged.
	ClosestPoint(p r3.Vec) r3.Vec
}

type base struct {
	id    ID
	body  *Body
	layer layers.Layer
}

func (b *base) ID() ID                  { return b.id }
func (b *base) Body() *Body             { return b.body }
func (b *base) Layer() layers.Layer     { return b.layer }
func (b *base) SetLayer(l layers.Layer) { b.layer = l }

// Sphere is a spherical collider.
type Sphere struct {
	base
	Shape geometry.Sphere
}

// NewSphere returns a sphere collider.
func NewSphere(id ID, body *Body, layer layers.Layer, center r3.Vec, radius float64) *Sphere {
	return &Sphere{
		base:  base{id: id, body: body, layer: layer},
		Shape: geometry.Sphere{Center: center, Radius: radius},
	}
}

func (s *Sphere) Bounds() r3.Box               { return s.Shape.Bounds() }
func (s *Sphere) ClosestPoint(p r3.Vec) r3.Vec { return s.Shape.ClosestPoint(p) }
func (s *Sphere) MoveTo(center r3.Vec)         { s.Shape.Center = center }

// Box is an oriented box collider.
type Box struct {
	base
	Shape geometry.OrientedBox
}

// NewBox returns an oriented box collider.
func NewBox(id ID, body *Body, layer layers.Layer, box geometry.OrientedBox) *Box {
	return &Box{base: base{id: id, body: body, layer: layer}, Shape: box}
}

func (b *Box) Bounds() r3.Box               { return b.Shape.Bounds() }
func (b *Box) ClosestPoint(p r3.Vec) r3.Vec { return b.Shape.ClosestPoint(p) }
func (b *Box) MoveTo(center r3.Vec)         { b.Shape.Center = center }

// Capsule is a capsule collider.
type Capsule struct {
	base
	Shape geometry.Capsule
}

// NewCapsule returns a capsule collider.
func NewCapsule(id ID, body *Body, layer layers.Layer, c geometry.Capsule) *Capsule {
	return &Capsule{base: base{id: id, body: body, layer: layer}, Shape: c}
}

func (c *Capsule) Bounds() r3.Box               { return c.Shape.Bounds() }
func (c *Capsule) ClosestPoint(p r3.Vec) r3.Vec { return c.Shape.ClosestPoint(p) }

// MoveTo translates the capsule so its segment midpoint is at center.
func (c *Capsule) MoveTo(center r3.Vec) {
	d := r3.Sub(center, geometry.Midpoint(c.Shape.Start, c.Shape.End))
	c.Shape.Start = r3.Add(c.Shape.Start, d)
	c.Shape.End = r3.Add(c.Shape.End, d)
}

// Mover is implemented by colliders that can be repositioned.
type Mover interface {
	MoveTo(center r3.Vec)
}
