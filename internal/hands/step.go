package hands

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/collider"
	"github.com/banshee-data/handcontact/internal/contact"
	"github.com/banshee-data/handcontact/internal/layers"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// CandidateSource is the physics broad phase.
type CandidateSource interface {
	OverlapBox(bounds r3.Box, mask layers.Mask, dst []collider.Collider) []collider.Collider
}

// Step runs one fixed step of contact tracking for every tracked hand.
//
// Stale colliders are purged from every bone of every hand before any
// bone is classified or evaluated for grabbing.
func Step(hs []*Hand, scene CandidateSource, tick Tick) {
	// Step 1: reset hand flags, refresh bone geometry from the simulated
	// pose and gather broad-phase candidates.
	for _, h := range hs {
		h.tick = tick
		if h.state != StateTracked {
			continue
		}
		h.isHovering, h.isContacting, h.isIntersecting, h.isCloseToObject = false, false, false, false
		pose := h.driver.SimulatedPose()
		for i, b := range h.bones {
			b.SetPose(pose.Bone(skeleton.BoneFromIndex(i)))
			h.candidates[i] = scene.OverlapBox(b.QueryBounds(), h.cfg.Layers.QueryMask, h.candidates[i][:0])
		}
	}

	// Step 2: purge stale relations everywhere.
	for _, h := range hs {
		if h.state != StateTracked {
			continue
		}
		for i, b := range h.bones {
			b.PurgeStale(h.candidates[i])
		}
	}

	// Step 3: classify against this step's candidates.
	for _, h := range hs {
		if h.state != StateTracked {
			continue
		}
		for i, b := range h.bones {
			b.Classify(h.candidates[i])
		}
	}

	// Step 4: grab candidacy, then fold bone flags into the hand.
	for _, h := range hs {
		if h.state != StateTracked {
			continue
		}
		hovered := make(map[*collider.Body]float64)
		contacted := make(map[*collider.Body]float64)
		for _, b := range h.bones {
			b.EvaluateGrab()
			h.isHovering = h.isHovering || b.IsBoneHovering()
			h.isContacting = h.isContacting || b.IsBoneContacting()
			h.isIntersecting = h.isIntersecting || b.IsIntersecting()
			h.isCloseToObject = h.isCloseToObject || b.IsCloseToObject()
			for _, rel := range b.Relations() {
				keepMin(hovered, rel.Body, rel.Distance)
				if rel.IsContacting {
					keepMin(contacted, rel.Body, rel.Distance)
				}
			}
		}
		h.diffBodies(h.hovered, hovered, EventHoverEnd, EventHoverBegin)
		h.diffBodies(h.contacted, contacted, EventContactEnd, EventContactBegin)
	}
}

func keepMin(m map[*collider.Body]float64, body *collider.Body, d float64) {
	if cur, ok := m[body]; !ok || d < cur {
		m[body] = d
	}
}

// RecordDebug captures every bone of a tracked hand. Call it after
// ApplyGrab so the record carries this step's grab state. debug may be
// nil.
func (h *Hand) RecordDebug(debug *contact.DebugCollector) {
	if h.state != StateTracked || !debug.IsEnabled() {
		return
	}
	for _, b := range h.bones {
		debug.RecordBone(b)
	}
}
