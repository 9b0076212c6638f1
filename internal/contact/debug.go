package contact

import (
	"math"

	"github.com/banshee-data/handcontact/internal/skeleton"
)

// Pre-allocation capacities for debug frame slices: two hands of sixteen
// bones, a handful of bodies in range.
const (
	defaultBoneCapacity     = 2 * skeleton.NumBones
	defaultRelationCapacity = 16
)

// DebugCollector accumulates per-bone contact state during one simulation
// step for offline inspection and tuning.
//
// Call BeginFrame before the step, RecordBone for each bone after it has
// been classified, then Emit. When disabled every call is a no-op.
type DebugCollector struct {
	enabled bool
	current *DebugFrame
}

// DebugFrame is the contact state captured for one simulation step.
type DebugFrame struct {
	Step      uint64
	Bones     []BoneRecord
	Relations []RelationRecord
}

// BoneRecord summarises one bone.
type BoneRecord struct {
	Hand        string
	Bone        string
	Hovering    bool
	Contacting  bool
	ReadyToGrab bool
	Grabbing    bool
	Distance    float64 // NaN when nothing is hovered
	NearestBody string
	Relations   int
}

// RelationRecord summarises one bone/body relation.
type RelationRecord struct {
	Hand          string
	Bone          string
	Body          string
	Distance      float64
	Colliders     int
	Contacting    bool
	GrabCandidate bool
}

// NewDebugCollector creates a collector that's initially disabled.
func NewDebugCollector() *DebugCollector {
	return &DebugCollector{}
}

// SetEnabled controls whether the collector records.
func (c *DebugCollector) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// IsEnabled returns true if the collector is recording.
func (c *DebugCollector) IsEnabled() bool {
	return c != nil && c.enabled
}

// BeginFrame starts collection for a simulation step.
func (c *DebugCollector) BeginFrame(step uint64) {
	if !c.IsEnabled() {
		return
	}
	c.current = &DebugFrame{
		Step:      step,
		Bones:     make([]BoneRecord, 0, defaultBoneCapacity),
		Relations: make([]RelationRecord, 0, defaultRelationCapacity),
	}
}

// RecordBone captures a bone and each of its relations.
func (c *DebugCollector) RecordBone(b *Bone) {
	if !c.IsEnabled() || c.current == nil {
		return
	}
	hand := b.Chirality.String()
	bone := b.ID.String()

	rec := BoneRecord{
		Hand:        hand,
		Bone:        bone,
		Hovering:    b.IsBoneHovering(),
		Contacting:  b.IsBoneContacting(),
		ReadyToGrab: b.IsBoneReadyToGrab(),
		Grabbing:    b.IsBoneGrabbing(),
		Distance:    b.ObjectDistance(),
		Relations:   b.RelationCount(),
	}
	if math.IsInf(rec.Distance, 1) {
		rec.Distance = math.NaN()
	}
	if n := b.NearestBody(); n != nil {
		rec.NearestBody = n.Name
	}
	c.current.Bones = append(c.current.Bones, rec)

	for _, r := range b.Relations() {
		c.current.Relations = append(c.current.Relations, RelationRecord{
			Hand:          hand,
			Bone:          bone,
			Body:          r.Body.Name,
			Distance:      r.Distance,
			Colliders:     r.Len(),
			Contacting:    r.IsContacting,
			GrabCandidate: r.IsGrabCandidate,
		})
	}
}

// Emit returns the accumulated frame and clears it. Returns nil if
// collection is disabled or no frame was begun.
func (c *DebugCollector) Emit() *DebugFrame {
	if !c.IsEnabled() || c.current == nil {
		return nil
	}
	frame := c.current
	c.current = nil
	return frame
}

// Reset discards any pending frame.
func (c *DebugCollector) Reset() {
	c.current = nil
}
