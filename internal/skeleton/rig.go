package skeleton

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/geometry"
)

// Dimensions describes an adult hand in metres.
type Dimensions struct {
	PalmWidth     float64
	PalmLength    float64
	PalmThickness float64
	// BoneLengths and BoneWidths are indexed [finger][joint]. Widths are
	// capsule radii.
	BoneLengths [NumFingers][NumJoints]float64
	BoneWidths  [NumFingers][NumJoints]float64
	// FingerSpacing is the lateral distance between adjacent knuckles.
	FingerSpacing float64
	// ThumbSplay is the angle (radians) of the thumb away from the fingers.
	ThumbSplay float64
}

// DefaultDimensions returns a medium adult hand.
func DefaultDimensions() Dimensions {
	d := Dimensions{
		PalmWidth:     0.08,
		PalmLength:    0.09,
		PalmThickness: 0.025,
		FingerSpacing: 0.02,
		ThumbSplay:    math.Pi / 4,
	}
	d.BoneLengths[Thumb] = [NumJoints]float64{0.045, 0.032, 0.025}
	d.BoneWidths[Thumb] = [NumJoints]float64{0.011, 0.01, 0.009}
	for f := Index; f <= Pinky; f++ {
		scale := 1.0
		if f == Pinky {
			scale = 0.8
		}
		d.BoneLengths[f] = [NumJoints]float64{0.045 * scale, 0.028 * scale, 0.022 * scale}
		d.BoneWidths[f] = [NumJoints]float64{0.009, 0.008, 0.007}
	}
	return d
}

// NewHandPose lays out a hand with its palm centred at center and its
// local frame rotated by orientation. curl (radians) bends every finger
// joint towards the palm; 0 is a flat open hand.
func NewHandPose(c Chirality, dims Dimensions, center r3.Vec, orientation r3.Rotation, curl float64) HandPose {
	hand := HandPose{Chirality: c}
	hand.Palm = BonePose{
		Position:  center,
		Rotation:  orientation,
		Length:    dims.PalmLength,
		Width:     dims.PalmWidth,
		Thickness: dims.PalmThickness,
	}

	radial := c.Radial()
	toWorld := func(local r3.Vec) r3.Vec { return r3.Add(center, orientation.Rotate(local)) }
	bend := r3.NewRotation(curl, geometry.AxisX)

	for f := Finger(0); f < NumFingers; f++ {
		var base r3.Vec
		baseRot := geometry.Identity
		if f == Thumb {
			base = r3.Add(r3.Scale(dims.PalmWidth/2, radial), r3.Vec{Z: -dims.PalmLength / 4})
			// Swing the thumb out towards the radial side.
			baseRot = r3.NewRotation(dims.ThumbSplay, r3.Cross(geometry.AxisZ, radial))
		} else {
			lateral := (2.5 - float64(f)) * dims.FingerSpacing
			base = r3.Add(r3.Scale(lateral, radial), r3.Vec{Z: dims.PalmLength / 2})
		}

		pos := toWorld(base)
		rot := geometry.Compose(orientation, baseRot)
		for j := Joint(0); j < NumJoints; j++ {
			rot = geometry.Compose(rot, bend)
			bone := BonePose{
				Position: pos,
				Rotation: rot,
				Length:   dims.BoneLengths[f][j],
				Width:    dims.BoneWidths[f][j],
			}
			hand.Fingers[f][j] = bone
			pos = bone.Tip()
		}
	}
	return hand
}
