package hands

import (
	"github.com/google/uuid"

	"github.com/banshee-data/handcontact/internal/collider"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// BoneSnapshot is the published state of one bone.
type BoneSnapshot struct {
	ID             skeleton.BoneID
	Hovering       bool
	Contacting     bool
	ReadyToGrab    bool
	Grabbing       bool
	ObjectDistance float64
	Grabbable      []*collider.Body
	Grabbed        []*collider.Body
}

// Snapshot is a copy of a hand's published state. It does not alias the
// hand and stays valid after later steps.
type Snapshot struct {
	Chirality       skeleton.Chirality
	Session         uuid.UUID
	State           State
	Tracked         bool
	Resetting       bool
	IsHovering      bool
	IsContacting    bool
	IsIntersecting  bool
	IsCloseToObject bool
	IsGrabbing      bool
	// Pose is the simulated (settled) pose of the physical hand.
	Pose    skeleton.HandPose
	Bones   [skeleton.NumBones]BoneSnapshot
	Grasped []*collider.Body
}

// Snapshot copies the hand's current state.
func (h *Hand) Snapshot() Snapshot {
	s := Snapshot{
		Chirality:       h.Chirality,
		Session:         h.session,
		State:           h.state,
		Tracked:         h.Tracked(),
		Resetting:       h.Resetting(),
		IsHovering:      h.isHovering,
		IsContacting:    h.isContacting,
		IsIntersecting:  h.isIntersecting,
		IsCloseToObject: h.isCloseToObject,
		IsGrabbing:      h.isGrabbing,
		Grasped:         h.GraspedBodies(),
	}
	if h.driver.Active() {
		s.Pose = h.driver.SimulatedPose()
	}
	for i, b := range h.bones {
		s.Bones[i] = BoneSnapshot{
			ID:             b.ID,
			Hovering:       b.IsBoneHovering(),
			Contacting:     b.IsBoneContacting(),
			ReadyToGrab:    b.IsBoneReadyToGrab(),
			Grabbing:       b.IsBoneGrabbing(),
			ObjectDistance: b.ObjectDistance(),
			Grabbable:      b.GrabbableBodies(),
			Grabbed:        append([]*collider.Body(nil), b.GrabbedBodies()...),
		}
	}
	return s
}
