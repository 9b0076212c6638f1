// Package grasp decides which grab candidates become grabs.
package grasp

import (
	"github.com/banshee-data/handcontact/internal/collider"
	"github.com/banshee-data/handcontact/internal/hands"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// Detector turns a hand's per-bone grab candidacy into grabs.
type Detector interface {
	Detect(h *hands.Hand) hands.GrabInput
}

// OppositionDetector starts a grab when the thumb and at least one other
// finger, or the palm, are grab candidates for the same body. A body
// already held stays held while any bone is still in contact with it.
type OppositionDetector struct{}

// Detect implements Detector.
func (OppositionDetector) Detect(h *hands.Hand) hands.GrabInput {
	var in hands.GrabInput
	if !h.Tracked() {
		return in
	}

	// Candidate bones per body, split into thumb and the rest.
	type sides struct{ thumb, other []int }
	bySide := make(map[*collider.Body]*sides)
	bodies := make([]*collider.Body, 0, 4)

	for i, b := range h.Bones() {
		for _, body := range b.GrabbableBodies() {
			s, ok := bySide[body]
			if !ok {
				s = &sides{}
				bySide[body] = s
				bodies = append(bodies, body)
			}
			if !b.ID.IsPalm && b.ID.Finger == skeleton.Thumb {
				s.thumb = append(s.thumb, i)
			} else {
				s.other = append(s.other, i)
			}
		}
	}

	for _, body := range bodies {
		s := bySide[body]
		if len(s.thumb) == 0 || len(s.other) == 0 {
			continue
		}
		for _, i := range append(s.thumb, s.other...) {
			in[i] = append(in[i], body)
		}
	}

	// Hold what is already grasped while contact persists.
	for _, body := range h.GraspedBodies() {
		for i, b := range h.Bones() {
			rel, ok := b.Relation(body)
			if !ok || !rel.IsContacting || contains(in[i], body) {
				continue
			}
			in[i] = append(in[i], body)
		}
	}
	return in
}

func contains(bodies []*collider.Body, body *collider.Body) bool {
	for _, b := range bodies {
		if b == body {
			return true
		}
	}
	return false
}
