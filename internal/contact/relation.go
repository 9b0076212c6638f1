package contact

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/collider"
)

// ColliderContact is the nearest-point result for one collider of a body.
type ColliderContact struct {
	Collider collider.Collider
	// BonePoint is on the bone axis (capsule) or palm rectangle.
	BonePoint r3.Vec
	// ObjectPoint is on the collider surface, or inside it when intersecting.
	ObjectPoint r3.Vec
	// Direction is the unit vector from BonePoint to ObjectPoint.
	Direction r3.Vec
	// Distance is the surface gap, never negative.
	Distance   float64
	Contacting bool
}

// Relation is a bone's view of one rigid body: the body's colliders that
// are within hover range and the flags derived from them.
type Relation struct {
	Body     *collider.Body
	contacts map[collider.ID]ColliderContact

	// Distance is the minimum over the member colliders.
	Distance        float64
	IsHovering      bool
	IsContacting    bool
	IsGrabCandidate bool
}

// Len returns the number of member colliders.
func (r *Relation) Len() int { return len(r.contacts) }

// Has reports whether collider id is a member.
func (r *Relation) Has(id collider.ID) bool {
	_, ok := r.contacts[id]
	return ok
}

// Contact returns the cached tuple for collider id.
func (r *Relation) Contact(id collider.ID) (ColliderContact, bool) {
	c, ok := r.contacts[id]
	return c, ok
}

// Contacts returns the member tuples ordered by collider ID.
func (r *Relation) Contacts() []ColliderContact {
	out := make([]ColliderContact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collider.ID() < out[j].Collider.ID() })
	return out
}

// reduce recomputes the relation's distance and hover/contact flags from
// its members. Grab candidacy is left cleared for EvaluateGrab.
func (r *Relation) reduce() {
	r.Distance = math.Inf(1)
	r.IsContacting = false
	r.IsGrabCandidate = false
	for _, c := range r.contacts {
		if c.Distance < r.Distance {
			r.Distance = c.Distance
		}
		if c.Contacting {
			r.IsContacting = true
		}
	}
	r.IsHovering = len(r.contacts) > 0
}

// Pool recycles Relation values so the per-step churn of bodies entering
// and leaving hover range does not allocate. One pool is shared by every
// bone of a hand; it is not safe for concurrent use.
type Pool struct {
	free []*Relation
}

// NewPool returns an empty pool.
func NewPool() *Pool { return &Pool{} }

// Free returns the number of relations waiting for reuse.
func (p *Pool) Free() int { return len(p.free) }

func (p *Pool) get(body *collider.Body) *Relation {
	var r *Relation
	if n := len(p.free); n > 0 {
		r = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	} else {
		r = &Relation{contacts: make(map[collider.ID]ColliderContact, 2)}
	}
	r.Body = body
	r.Distance = math.Inf(1)
	return r
}

func (p *Pool) put(r *Relation) {
	clear(r.contacts)
	r.Body = nil
	r.IsHovering, r.IsContacting, r.IsGrabCandidate = false, false, false
	p.free = append(p.free, r)
}
