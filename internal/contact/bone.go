package contact

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/collider"
	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// Kind selects the bone volume shape.
type Kind int

const (
	// Capsule is a finger bone: a segment swept by a sphere.
	Capsule Kind = iota
	// Palm is an oriented box whose broad face is the palm.
	Palm
)

func (k Kind) String() string {
	if k == Palm {
		return "palm"
	}
	return "capsule"
}

// thresholdSlack keeps boundary comparisons inclusive under rounding.
const thresholdSlack = 1e-12

// Bone is the simplified collision volume of one hand segment together
// with its contact relations.
type Bone struct {
	ID        skeleton.BoneID
	Kind      Kind
	Chirality skeleton.Chirality

	thresholds Thresholds
	grab       GrabParams
	pool       *Pool

	// World geometry, refreshed by SetPose.
	start, end  r3.Vec
	center      r3.Vec
	rotation    r3.Rotation
	radius      float64
	halfExtents r3.Vec
	palmar      r3.Vec
	forward     r3.Vec
	corners     [4]r3.Vec

	relations map[*collider.Body]*Relation
	seen      map[collider.ID]struct{}

	hovering      bool
	contacting    bool
	readyToGrab   bool
	grabbing      bool
	closeToObject bool
	intersecting  bool
	distance      float64
	nearest       *collider.Body
	grabbed       []*collider.Body
}

// NewBone returns a bone with no relations. Finger bones are capsules and
// the palm is a box. pool may be shared between the bones of one hand; nil
// gives the bone its own.
func NewBone(id skeleton.BoneID, chirality skeleton.Chirality, th Thresholds, gp GrabParams, pool *Pool) *Bone {
	if pool == nil {
		pool = NewPool()
	}
	kind := Capsule
	if id.IsPalm {
		kind = Palm
	}
	return &Bone{
		ID:         id,
		Kind:       kind,
		Chirality:  chirality,
		thresholds: th,
		grab:       gp,
		pool:       pool,
		rotation:   geometry.Identity,
		palmar:     r3.Vec{Y: -1},
		forward:    geometry.AxisZ,
		relations:  make(map[*collider.Body]*Relation),
		seen:       make(map[collider.ID]struct{}),
		distance:   math.Inf(1),
	}
}

// SetPose recomputes the bone's world geometry from the authoritative
// pose. Degenerate extents are clamped to Thresholds.MinExtent.
func (b *Bone) SetPose(p skeleton.BonePose) {
	minExt := b.thresholds.MinExtent
	length := math.Max(p.Length, minExt)
	width := math.Max(p.Width, minExt)

	b.rotation = geometry.Normalize(p.Rotation)
	b.forward = b.rotation.Rotate(geometry.AxisZ)
	b.palmar = b.rotation.Rotate(r3.Vec{Y: -1})

	switch b.Kind {
	case Palm:
		thickness := math.Max(p.Thickness, minExt)
		b.center = p.Position
		b.halfExtents = r3.Vec{X: width / 2, Y: thickness / 2, Z: length / 2}
		b.radius = thickness / 2
		half := r3.Scale(length/2, b.forward)
		b.start = r3.Sub(b.center, half)
		b.end = r3.Add(b.center, half)
		b.corners = geometry.RectangleCorners(b.center, b.rotation, b.halfExtents, 1)
	default:
		b.start = p.Position
		b.end = r3.Add(p.Position, r3.Scale(length, b.forward))
		b.center = geometry.Midpoint(b.start, b.end)
		b.radius = width
	}
}

// Radius is the capsule radius, or half the palm thickness.
func (b *Bone) Radius() float64 { return b.radius }

// Center returns the bone's world centre.
func (b *Bone) Center() r3.Vec { return b.center }

// Axis returns the bone's longitudinal segment.
func (b *Bone) Axis() (start, end r3.Vec) { return b.start, b.end }

// Palmar returns the world direction the bone's grasping surface faces.
func (b *Bone) Palmar() r3.Vec { return b.palmar }

// Bounds returns the world-space bounding box of the bone volume.
func (b *Bone) Bounds() r3.Box {
	if b.Kind == Palm {
		return geometry.OrientedBox{Center: b.center, Rotation: b.rotation, HalfExtents: b.halfExtents}.Bounds()
	}
	return geometry.Capsule{Start: b.start, End: b.end, Radius: b.radius}.Bounds()
}

// QueryBounds is Bounds inflated by the hover threshold: the broad-phase
// region from which this bone's candidates are drawn.
func (b *Bone) QueryBounds() r3.Box {
	return geometry.Inflate(b.Bounds(), b.thresholds.Hover)
}

// ProcessCandidates runs a full step for this bone against candidates.
func (b *Bone) ProcessCandidates(candidates []collider.Collider) {
	b.PurgeStale(candidates)
	b.Classify(candidates)
	b.EvaluateGrab()
}

// PurgeStale drops every member collider not present in candidates and
// deletes relations left empty.
func (b *Bone) PurgeStale(candidates []collider.Collider) {
	clear(b.seen)
	for _, c := range candidates {
		if c != nil {
			b.seen[c.ID()] = struct{}{}
		}
	}
	for body, rel := range b.relations {
		for id := range rel.contacts {
			if _, ok := b.seen[id]; !ok {
				delete(rel.contacts, id)
			}
		}
		if len(rel.contacts) == 0 {
			delete(b.relations, body)
			b.pool.put(rel)
		}
	}
}

// Classify measures every candidate with an owning body and updates the
// relations. Candidates without a body are static scenery and ignored.
func (b *Bone) Classify(candidates []collider.Collider) {
	b.closeToObject = false
	b.intersecting = false

	hover := b.thresholds.Hover + thresholdSlack
	contact := b.thresholds.ContactFor(b.Kind) + thresholdSlack
	safety := b.thresholds.Safety + thresholdSlack

	for _, c := range candidates {
		if c == nil {
			continue
		}
		body := c.Body()
		if body == nil {
			continue
		}

		cc := b.Measure(c)
		if cc.Distance <= safety {
			b.closeToObject = true
		}
		if cc.Distance == 0 {
			b.intersecting = true
		}

		rel := b.relations[body]
		if cc.Distance > hover {
			if rel != nil {
				delete(rel.contacts, c.ID())
			}
			continue
		}
		if rel == nil {
			rel = b.pool.get(body)
			b.relations[body] = rel
		}
		cc.Contacting = cc.Distance <= contact
		rel.contacts[c.ID()] = cc
	}

	b.hovering, b.contacting, b.readyToGrab = false, false, false
	b.distance = math.Inf(1)
	b.nearest = nil
	for body, rel := range b.relations {
		if len(rel.contacts) == 0 {
			delete(b.relations, body)
			b.pool.put(rel)
			continue
		}
		rel.reduce()
		b.hovering = true
		if rel.IsContacting {
			b.contacting = true
		}
		if rel.Distance < b.distance || (rel.Distance == b.distance && b.nearest != nil && body.ID < b.nearest.ID) {
			b.distance = rel.Distance
			b.nearest = body
		}
	}
}

// Measure computes the nearest-point tuple between the bone volume and c.
// An initial estimate is refined once by re-querying the collider from
// the midpoint of the estimate and projecting back onto the bone.
func (b *Bone) Measure(c collider.Collider) ColliderContact {
	var bonePoint, objectPoint r3.Vec
	if b.Kind == Palm {
		bonePoint, objectPoint = geometry.ClosestPointEstimationFromRectangle(b.center, b.rotation, b.halfExtents, c, 1)
	} else {
		objectPoint = c.ClosestPoint(b.center)
		bonePoint = geometry.ClosestPointOnSegment(objectPoint, b.start, b.end)
	}

	objectPoint = c.ClosestPoint(geometry.Midpoint(bonePoint, objectPoint))
	bonePoint = b.projectOntoBone(objectPoint)

	gap := geometry.Distance(objectPoint, bonePoint)
	return ColliderContact{
		Collider:    c,
		BonePoint:   bonePoint,
		ObjectPoint: objectPoint,
		Direction:   geometry.SafeUnit(r3.Sub(objectPoint, bonePoint), b.palmar),
		Distance:    math.Max(0, gap-b.radius),
	}
}

// projectOntoBone returns the point of the bone's core (capsule axis or
// palm mid-plane rectangle) nearest to p.
func (b *Bone) projectOntoBone(p r3.Vec) r3.Vec {
	if b.Kind == Palm {
		normal := b.rotation.Rotate(geometry.AxisY)
		onPlane := geometry.ProjectOntoPlane(p, b.center, normal)
		return geometry.ClosestPointToRectangleFace(b.corners, onPlane)
	}
	return geometry.ClosestPointOnSegment(p, b.start, b.end)
}

// Reset drops every relation and clears the published flags.
func (b *Bone) Reset() {
	for body, rel := range b.relations {
		delete(b.relations, body)
		b.pool.put(rel)
	}
	b.hovering, b.contacting, b.readyToGrab, b.grabbing = false, false, false, false
	b.closeToObject, b.intersecting = false, false
	b.distance = math.Inf(1)
	b.nearest = nil
	b.grabbed = b.grabbed[:0]
}

// Relation returns the relation for body.
func (b *Bone) Relation(body *collider.Body) (*Relation, bool) {
	r, ok := b.relations[body]
	return r, ok
}

// Relations returns the live relations ordered by body ID.
func (b *Bone) Relations() []*Relation {
	out := make([]*Relation, 0, len(b.relations))
	for _, r := range b.relations {
		out = append(out, r)
	}
	sortRelations(out)
	return out
}

// RelationCount returns the number of bodies in hover range.
func (b *Bone) RelationCount() int { return len(b.relations) }

func (b *Bone) IsBoneHovering() bool    { return b.hovering }
func (b *Bone) IsBoneContacting() bool  { return b.contacting }
func (b *Bone) IsBoneReadyToGrab() bool { return b.readyToGrab }
func (b *Bone) IsBoneGrabbing() bool    { return b.grabbing }
func (b *Bone) IsCloseToObject() bool   { return b.closeToObject }
func (b *Bone) IsIntersecting() bool    { return b.intersecting }

// ObjectDistance is the surface gap to the nearest hovered body, or +Inf
// when nothing is in hover range.
func (b *Bone) ObjectDistance() float64 { return b.distance }

// NearestBody returns the nearest hovered body, or nil.
func (b *Bone) NearestBody() *collider.Body { return b.nearest }

// GrabbableBodies returns the bodies whose relation is a grab candidate.
func (b *Bone) GrabbableBodies() []*collider.Body {
	var out []*collider.Body
	for body, r := range b.relations {
		if r.IsGrabCandidate {
			out = append(out, body)
		}
	}
	sortBodies(out)
	return out
}

// GrabbedBodies returns the bodies this bone is grabbing.
func (b *Bone) GrabbedBodies() []*collider.Body { return b.grabbed }

// SetGrabbing records the externally decided grab state. bodies is copied.
func (b *Bone) SetGrabbing(grabbing bool, bodies []*collider.Body) {
	b.grabbing = grabbing
	b.grabbed = append(b.grabbed[:0], bodies...)
	sortBodies(b.grabbed)
}

func sortBodies(bodies []*collider.Body) {
	sort.Slice(bodies, func(i, j int) bool { return bodies[i].ID < bodies[j].ID })
}

func sortRelations(rels []*Relation) {
	sort.Slice(rels, func(i, j int) bool { return rels[i].Body.ID < rels[j].Body.ID })
}
