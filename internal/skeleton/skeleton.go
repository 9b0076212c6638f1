// Package skeleton defines the tracked hand pose consumed by the contact
// engine: one palm plus three joints for each of five fingers, each with a
// world position, orientation and extent.
//
// Hand-local frame: X points across the hand, Y out of the back of the
// hand (so the palm faces -Y) and Z along the fingers towards the tips.
package skeleton

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/geometry"
)

// Chirality identifies a left or right hand.
type Chirality int

const (
	Left Chirality = iota
	Right
)

// NumHands is the number of chiralities.
const NumHands = 2

func (c Chirality) String() string {
	switch c {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("chirality(%d)", int(c))
	}
}

// Radial returns the hand-local direction towards the thumb side.
func (c Chirality) Radial() r3.Vec {
	if c == Left {
		return geometry.AxisX
	}
	return r3.Scale(-1, geometry.AxisX)
}

// Finger identifies a digit.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// NumFingers is the number of digits on a hand.
const NumFingers = 5

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < 0 || int(f) >= NumFingers {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// Joint indexes the bones of a finger, from the knuckle out.
type Joint int

const (
	Proximal Joint = iota
	Intermediate
	Distal
)

// NumJoints is the number of bones per finger.
const NumJoints = 3

// NumBones is the palm plus every finger bone.
const NumBones = 1 + NumFingers*NumJoints

// BoneID addresses one bone of a hand. The palm has IsPalm set and ignores
// Finger and Joint.
type BoneID struct {
	IsPalm bool
	Finger Finger
	Joint  Joint
}

// PalmBone is the BoneID of the palm.
var PalmBone = BoneID{IsPalm: true}

// FingerBone returns the BoneID for a finger joint.
func FingerBone(f Finger, j Joint) BoneID {
	return BoneID{Finger: f, Joint: j}
}

// Index returns a dense index in [0, NumBones): palm first.
func (b BoneID) Index() int {
	if b.IsPalm {
		return 0
	}
	return 1 + int(b.Finger)*NumJoints + int(b.Joint)
}

// BoneFromIndex is the inverse of BoneID.Index.
func BoneFromIndex(i int) BoneID {
	if i == 0 {
		return PalmBone
	}
	i--
	return FingerBone(Finger(i/NumJoints), Joint(i%NumJoints))
}

func (b BoneID) String() string {
	if b.IsPalm {
		return "palm"
	}
	return fmt.Sprintf("%s_%d", b.Finger, int(b.Joint))
}

// BonePose is a bone's world transform and extent. Position is the
// proximal end of a finger bone and the centre of the palm. Rotation maps
// the hand-local frame onto the bone: local Z runs along the bone.
type BonePose struct {
	Position r3.Vec
	Rotation r3.Rotation
	// Length along local Z. For the palm, the length of the palm box.
	Length float64
	// Width is the capsule radius of a finger bone, or the palm box width
	// along local X.
	Width float64
	// Thickness is the palm box depth along local Y. Unused for fingers.
	Thickness float64
}

// Tip returns the far end of the bone along its local Z axis.
func (p BonePose) Tip() r3.Vec {
	return r3.Add(p.Position, r3.Scale(p.Length, p.Rotation.Rotate(geometry.AxisZ)))
}

// HandPose is one tracked hand at an instant.
type HandPose struct {
	Chirality Chirality
	Timestamp time.Time
	Palm      BonePose
	Fingers   [NumFingers][NumJoints]BonePose
}

// Bone returns the pose of bone id.
func (h *HandPose) Bone(id BoneID) BonePose {
	if id.IsPalm {
		return h.Palm
	}
	return h.Fingers[id.Finger][id.Joint]
}

// SetBone replaces the pose of bone id.
func (h *HandPose) SetBone(id BoneID, p BonePose) {
	if id.IsPalm {
		h.Palm = p
		return
	}
	h.Fingers[id.Finger][id.Joint] = p
}

// Translate moves every bone by d.
func (h HandPose) Translate(d r3.Vec) HandPose {
	h.Palm.Position = r3.Add(h.Palm.Position, d)
	for f := range h.Fingers {
		for j := range h.Fingers[f] {
			h.Fingers[f][j].Position = r3.Add(h.Fingers[f][j].Position, d)
		}
	}
	return h
}

// Interpolate blends two poses of the same hand. t=0 yields a, t=1 yields
// b. Extents are taken from b.
func Interpolate(a, b HandPose, t float64) HandPose {
	t = geometry.Clamp(t, 0, 1)
	out := b
	out.Palm = lerpBone(a.Palm, b.Palm, t)
	for f := range out.Fingers {
		for j := range out.Fingers[f] {
			out.Fingers[f][j] = lerpBone(a.Fingers[f][j], b.Fingers[f][j], t)
		}
	}
	if !a.Timestamp.IsZero() && !b.Timestamp.IsZero() {
		out.Timestamp = a.Timestamp.Add(time.Duration(float64(b.Timestamp.Sub(a.Timestamp)) * t))
	}
	return out
}

func lerpBone(a, b BonePose, t float64) BonePose {
	b.Position = geometry.Lerp(a.Position, b.Position, t)
	b.Rotation = geometry.Nlerp(a.Rotation, b.Rotation, t)
	return b
}
