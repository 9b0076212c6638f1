// Package contact tracks, per hand bone, which rigid bodies are being
// hovered over, touched and could be grabbed.
//
// Each Bone owns its relation map exclusively. A physics step drives a
// bone in phases: PurgeStale, Classify, then EvaluateGrab.
// ProcessCandidates runs all three for callers that do not need to
// interleave bones.
package contact

import (
	"github.com/banshee-data/handcontact/internal/config"
	"github.com/banshee-data/handcontact/internal/geometry"
)

// Thresholds are the surface-gap limits (metres) used to classify a bone
// against an object.
type Thresholds struct {
	Hover   float64
	Contact float64
	Safety  float64
	// MinExtent is the floor applied to bone lengths and widths.
	MinExtent float64
}

// ThresholdsFromTuning builds Thresholds from a tuning config.
func ThresholdsFromTuning(cfg *config.TuningConfig) Thresholds {
	return Thresholds{
		Hover:     cfg.GetHoverThreshold(),
		Contact:   cfg.GetContactThreshold(),
		Safety:    cfg.GetSafetyThreshold(),
		MinExtent: cfg.GetMinBoneExtent(),
	}
}

// ContactFor returns the contact threshold for a bone kind. The palm uses
// twice the finger tolerance.
func (t Thresholds) ContactFor(k Kind) float64 {
	if k == Palm {
		return 2 * t.Contact
	}
	return t.Contact
}

// GrabParams tune the grab admissibility test.
type GrabParams struct {
	// DistalForwardMax is the largest forward tilt (radians) of the palmar
	// direction of a distal bone, reached at its tip.
	DistalForwardMax float64
	// ThumbIndexTilt is the tilt (radians) of the thumb and index palmar
	// directions towards each other.
	ThumbIndexTilt float64
	// ThumbThreshold and FingerThreshold are the minimum dot products
	// between the palmar direction and the direction to the object.
	ThumbThreshold  float64
	FingerThreshold float64
}

// GrabParamsFromTuning builds GrabParams from a tuning config.
func GrabParamsFromTuning(cfg *config.TuningConfig) GrabParams {
	return GrabParams{
		DistalForwardMax: geometry.Radians(cfg.GetDistalForwardMaxDeg()),
		ThumbIndexTilt:   geometry.Radians(cfg.GetThumbIndexTiltDeg()),
		ThumbThreshold:   cfg.GetThumbGrabThreshold(),
		FingerThreshold:  cfg.GetFingerGrabThreshold(),
	}
}

// DefaultThresholds and DefaultGrabParams mirror the tuning defaults.
func DefaultThresholds() Thresholds { return ThresholdsFromTuning(config.EmptyTuningConfig()) }
func DefaultGrabParams() GrabParams { return GrabParamsFromTuning(config.EmptyTuningConfig()) }
