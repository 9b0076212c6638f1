package contact

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// EvaluateGrab recomputes grab candidacy for every relation. Only
// contacting relations can become candidates.
func (b *Bone) EvaluateGrab() {
	b.readyToGrab = false
	for _, rel := range b.relations {
		rel.IsGrabCandidate = rel.IsContacting && b.IsObjectGrabbable(rel)
		if rel.IsGrabCandidate {
			b.readyToGrab = true
		}
	}
}

// IsObjectGrabbable reports whether any contacting collider of rel sits
// where this bone could close on it: either overlapping the bone's core,
// or lying on the palmar side of the bone.
func (b *Bone) IsObjectGrabbable(rel *Relation) bool {
	threshold := b.grab.FingerThreshold
	if !b.ID.IsPalm && b.ID.Finger == skeleton.Thumb {
		threshold = b.grab.ThumbThreshold
	}

	for _, cc := range rel.contacts {
		if !cc.Contacting {
			continue
		}
		ref, t := geometry.ClosestPointOnSegmentParam(cc.BonePoint, b.start, b.end)
		nearest := cc.Collider.ClosestPoint(ref)
		if geometry.Distance(nearest, ref) <= b.radius {
			return true
		}

		dir := geometry.SafeUnit(r3.Sub(nearest, ref), b.palmar)
		if r3.Dot(dir, b.grabDirection(t)) > threshold {
			return true
		}
	}
	return false
}

// grabDirection is the bone's palmar direction adjusted for where along
// the bone (t in [0, 1]) the contact falls. Distal bones lean forward
// towards the fingertip; thumb and index lean towards each other.
func (b *Bone) grabDirection(t float64) r3.Vec {
	dir := b.palmar
	if b.ID.IsPalm {
		return dir
	}
	if b.ID.Joint == skeleton.Distal {
		dir = geometry.Tilt(dir, b.forward, b.grab.DistalForwardMax*geometry.Clamp(t, 0, 1))
	}
	switch b.ID.Finger {
	case skeleton.Thumb:
		dir = geometry.Tilt(dir, r3.Scale(-1, b.radial()), b.grab.ThumbIndexTilt)
	case skeleton.Index:
		dir = geometry.Tilt(dir, b.radial(), b.grab.ThumbIndexTilt)
	}
	return dir
}

// radial is the world direction towards the thumb side of the hand.
func (b *Bone) radial() r3.Vec {
	return b.rotation.Rotate(b.Chirality.Radial())
}
