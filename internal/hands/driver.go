package hands

import (
	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/layers"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// BodyDriver is the physical representation of one hand: the rigid bodies
// the physics engine moves towards the tracked pose.
type BodyDriver interface {
	Active() bool
	// Activate places the body at pose and enables it.
	Activate(pose skeleton.HandPose)
	Deactivate()
	// Teleport moves the body to pose instantly, ignoring collisions.
	Teleport(pose skeleton.HandPose)
	// SetImmovable stops objects from pushing the body. While immovable
	// the body follows its target exactly.
	SetImmovable(immovable bool)
	SetLayer(l layers.Layer)
	// Drive moves the body towards target for one fixed step.
	Drive(target skeleton.HandPose)
	// SimulatedPose is the body's pose after the last step.
	SimulatedPose() skeleton.HandPose
}

// KinematicDriver is a BodyDriver with no solver: each Drive moves the
// body a fixed fraction of the way to the target.
type KinematicDriver struct {
	// Follow is the fraction of the remaining offset covered per step,
	// in (0, 1]. 1 snaps to the target.
	Follow float64

	active    bool
	immovable bool
	layer     layers.Layer
	pose      skeleton.HandPose
	teleports int
}

// NewKinematicDriver returns a driver that snaps to its target.
func NewKinematicDriver() *KinematicDriver {
	return &KinematicDriver{Follow: 1}
}

func (d *KinematicDriver) Active() bool { return d.active }

func (d *KinematicDriver) Activate(pose skeleton.HandPose) {
	d.active = true
	d.pose = pose
}

func (d *KinematicDriver) Deactivate() {
	d.active = false
	d.immovable = false
}

func (d *KinematicDriver) Teleport(pose skeleton.HandPose) {
	d.pose = pose
	d.teleports++
}

func (d *KinematicDriver) SetImmovable(immovable bool) { d.immovable = immovable }
func (d *KinematicDriver) SetLayer(l layers.Layer)     { d.layer = l }
func (d *KinematicDriver) Layer() layers.Layer         { return d.layer }
func (d *KinematicDriver) Immovable() bool             { return d.immovable }

// Teleports returns how many times the body has been teleported.
func (d *KinematicDriver) Teleports() int { return d.teleports }

func (d *KinematicDriver) Drive(target skeleton.HandPose) {
	if !d.active {
		return
	}
	follow := geometry.Clamp(d.Follow, 0, 1)
	if d.immovable || follow == 1 {
		d.pose = target
		return
	}
	d.pose = skeleton.Interpolate(d.pose, target, follow)
}

func (d *KinematicDriver) SimulatedPose() skeleton.HandPose { return d.pose }
