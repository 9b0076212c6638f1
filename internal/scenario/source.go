// Package scenario generates scripted tracking input for offline runs of
// the synchronizer: a hand travelling along a straight path, closing its
// fingers at the end, with optional tracking dropouts.
package scenario

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/framesync"
	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// Window is a half-open interval [From, To) measured from the start of
// the script.
type Window struct {
	From time.Duration
	To   time.Duration
}

// Contains reports whether d falls inside w.
func (w Window) Contains(d time.Duration) bool { return d >= w.From && d < w.To }

// Script describes one synthetic hand movement.
//
// The palm travels from Start to End during Approach, then stays at End
// for Hold while the finger curl ramps from OpenCurl to ClosedCurl. After
// Approach+Hold the hand disappears from tracking.
type Script struct {
	Hand        skeleton.Chirality
	Dims        skeleton.Dimensions
	Orientation r3.Rotation
	Start       r3.Vec
	End         r3.Vec
	Approach    time.Duration
	Hold        time.Duration
	OpenCurl    float64
	ClosedCurl  float64
	// FrameInterval is the tracking period, independent of the fixed step.
	FrameInterval time.Duration
	// Dropouts are windows in which the hand is missing from tracking.
	Dropouts []Window
}

// Total is the scripted duration while the hand is present.
func (s Script) Total() time.Duration { return s.Approach + s.Hold }

// PoseAt returns the hand pose at elapsed time d into the script.
func (s Script) PoseAt(d time.Duration) skeleton.HandPose {
	travel, closing := 1.0, 0.0
	if s.Approach > 0 && d < s.Approach {
		travel = float64(d) / float64(s.Approach)
	}
	if d > s.Approach && s.Hold > 0 {
		closing = geometry.Clamp(float64(d-s.Approach)/float64(s.Hold), 0, 1)
	}
	if travel < 0 {
		travel = 0
	}
	center := geometry.Lerp(s.Start, s.End, travel)
	curl := s.OpenCurl + (s.ClosedCurl-s.OpenCurl)*closing
	return skeleton.NewHandPose(s.Hand, s.Dims, center, s.Orientation, curl)
}

// Tracked reports whether the hand is visible at elapsed time d.
func (s Script) Tracked(d time.Duration) bool {
	if d < 0 || d > s.Total() {
		return false
	}
	for _, w := range s.Dropouts {
		if w.Contains(d) {
			return false
		}
	}
	return true
}

// Source plays a Script as a framesync.TrackingSource. The script clock
// starts on the first call to Next.
type Source struct {
	script  Script
	start   time.Time
	started bool
	nextDue time.Time
	nextID  uint64
	emitted int
}

var _ framesync.TrackingSource = (*Source)(nil)

// NewSource wraps s. A zero FrameInterval defaults to 90 Hz.
func NewSource(s Script) *Source {
	if s.FrameInterval <= 0 {
		s.FrameInterval = time.Second / 90
	}
	if s.Orientation == (r3.Rotation{}) {
		s.Orientation = geometry.Identity
	}
	return &Source{script: s}
}

// Script returns the script being played.
func (src *Source) Script() Script { return src.script }

// Next returns a frame when one is due at now. Frames are stamped on the
// tracking schedule; periods the caller slept through are skipped rather
// than replayed.
func (src *Source) Next(now time.Time) (framesync.TrackingFrame, bool) {
	if !src.started {
		src.started = true
		src.start = now
		src.nextDue = now
	}
	if now.Before(src.nextDue) {
		return framesync.TrackingFrame{}, false
	}

	ts := src.nextDue
	for !src.nextDue.After(now) {
		ts = src.nextDue
		src.nextDue = src.nextDue.Add(src.script.FrameInterval)
	}

	src.nextID++
	src.emitted++
	f := framesync.TrackingFrame{ID: src.nextID, Timestamp: ts}
	if d := ts.Sub(src.start); src.script.Tracked(d) {
		pose := src.script.PoseAt(d)
		pose.Timestamp = ts
		f.Hands = []skeleton.HandPose{pose}
	}
	return f, true
}

// Done reports whether the script has finished at now.
func (src *Source) Done(now time.Time) bool {
	return src.started && now.Sub(src.start) > src.script.Total()
}

// Emitted returns the number of frames produced so far.
func (src *Source) Emitted() int { return src.emitted }
