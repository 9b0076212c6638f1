// Package hands aggregates the contact state of every bone of a hand and
// manages the hand's lifecycle from first tracking to loss.
package hands

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/banshee-data/handcontact/internal/collider"
	"github.com/banshee-data/handcontact/internal/config"
	"github.com/banshee-data/handcontact/internal/contact"
	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/layers"
	"github.com/banshee-data/handcontact/internal/monitoring"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// State is the lifecycle state of a hand.
type State string

const (
	StateInactive  State = "inactive"  // Never seen, or lost long enough to be deactivated
	StateTracked   State = "tracked"   // Receiving tracking poses
	StateResetting State = "resetting" // Tracking lost; body kept while it may resume
)

// Config holds hand-level parameters.
type Config struct {
	Thresholds contact.Thresholds
	Grab       contact.GrabParams
	Layers     layers.Config

	// DivergenceThreshold is the palm offset (metres) between tracked and
	// settled poses above which the body is teleported.
	DivergenceThreshold float64
	// RecoveryHoldSteps is how many fixed steps the body stays immovable
	// after a divergence teleport.
	RecoveryHoldSteps int
	// ResetHoldSteps is how many untracked fixed steps a resetting hand
	// survives before it is deactivated.
	ResetHoldSteps int
}

// DefaultConfig returns the hand configuration from the canonical tuning
// defaults file. Panics if the file cannot be found; intended for tests.
func DefaultConfig(l layers.Config) Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig(), l)
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig, l layers.Config) Config {
	return Config{
		Thresholds:          contact.ThresholdsFromTuning(cfg),
		Grab:                contact.GrabParamsFromTuning(cfg),
		Layers:              l,
		DivergenceThreshold: cfg.GetDivergenceThreshold(),
		RecoveryHoldSteps:   cfg.GetRecoveryHoldSteps(),
		ResetHoldSteps:      cfg.GetResetHoldSteps(),
	}
}

// GrabInput lists, per bone index, the bodies an external grab decision
// says that bone is holding.
type GrabInput [skeleton.NumBones][]*collider.Body

// Hand is one simulated hand.
type Hand struct {
	Chirality skeleton.Chirality

	cfg    Config
	driver BodyDriver
	sink   EventSink
	pool   *contact.Pool
	bones  [skeleton.NumBones]*contact.Bone

	candidates [skeleton.NumBones][]collider.Collider

	state        State
	session      uuid.UUID
	target       skeleton.HandPose
	untracked    int
	recoveryLeft int
	tick         Tick

	isHovering      bool
	isContacting    bool
	isIntersecting  bool
	isCloseToObject bool
	isGrabbing      bool

	hovered   map[*collider.Body]float64
	contacted map[*collider.Body]float64
	grasped   map[*collider.Body]struct{}
}

// New returns an inactive hand. sink may be nil.
func New(c skeleton.Chirality, cfg Config, driver BodyDriver, sink EventSink) *Hand {
	if driver == nil {
		driver = NewKinematicDriver()
	}
	h := &Hand{
		Chirality: c,
		cfg:       cfg,
		driver:    driver,
		sink:      sink,
		pool:      contact.NewPool(),
		state:     StateInactive,
		hovered:   make(map[*collider.Body]float64),
		contacted: make(map[*collider.Body]float64),
		grasped:   make(map[*collider.Body]struct{}),
	}
	for i := range h.bones {
		h.bones[i] = contact.NewBone(skeleton.BoneFromIndex(i), c, cfg.Thresholds, cfg.Grab, h.pool)
	}
	return h
}

// BeginHand starts tracking. An inactive hand gets a new session and its
// body is activated at pose; a resetting hand resumes without teleport.
func (h *Hand) BeginHand(pose skeleton.HandPose) {
	h.target = pose
	h.untracked = 0
	switch h.state {
	case StateTracked:
		return
	case StateResetting:
		h.state = StateTracked
		h.driver.SetLayer(h.cfg.Layers.Hand)
		monitoring.Logf("[hands] %s hand resumed session %s", h.Chirality, h.session)
		return
	}

	h.session = uuid.New()
	if !h.driver.Active() {
		h.driver.Activate(pose)
	}
	h.driver.SetLayer(h.cfg.Layers.Hand)
	h.state = StateTracked
	h.emit(Event{Kind: EventHandBegin})
}

// UpdateHand sets the tracked target for the next fixed step.
func (h *Hand) UpdateHand(pose skeleton.HandPose) {
	if h.state != StateTracked {
		h.BeginHand(pose)
		return
	}
	h.target = pose
}

// FinishHand marks tracking as lost. The body is kept, moved to the reset
// layer, and its contact state cleared.
func (h *Hand) FinishHand() {
	if h.state != StateTracked {
		return
	}
	h.state = StateResetting
	h.untracked = 0
	h.driver.SetLayer(h.cfg.Layers.Reset)
	h.resetContacts()
	h.emit(Event{Kind: EventHandFinish})
}

// Idle advances the reset timeout by one fixed step. Called for every step
// in which the hand is not tracked.
func (h *Hand) Idle() {
	if h.state != StateResetting {
		return
	}
	h.untracked++
	if h.untracked < h.cfg.ResetHoldSteps {
		return
	}
	h.driver.Deactivate()
	h.state = StateInactive
	h.recoveryLeft = 0
	h.emit(Event{Kind: EventHandLost})
}

// SetTick stamps subsequent events with tick.
func (h *Hand) SetTick(tick Tick) { h.tick = tick }

// Drive advances the physical body towards the tracked target.
func (h *Hand) Drive() {
	if h.state != StateTracked {
		return
	}
	h.driver.Drive(h.target)
}

// ApplyGrab records which bodies each bone is grabbing. A grabbing bone
// makes every more proximal bone of its finger grab the same bodies.
func (h *Hand) ApplyGrab(in GrabInput) {
	if h.state != StateTracked {
		return
	}
	holding := make(map[*collider.Body]struct{})

	palm := h.bones[skeleton.PalmBone.Index()]
	palm.SetGrabbing(len(in[0]) > 0, in[0])
	for _, b := range in[0] {
		holding[b] = struct{}{}
	}

	for f := skeleton.Finger(0); f < skeleton.NumFingers; f++ {
		var carry []*collider.Body
		for j := skeleton.Distal; j >= skeleton.Proximal; j-- {
			idx := skeleton.FingerBone(f, j).Index()
			carry = unionBodies(carry, in[idx])
			h.bones[idx].SetGrabbing(len(carry) > 0, carry)
		}
		for _, b := range carry {
			holding[b] = struct{}{}
		}
	}

	h.isGrabbing = len(holding) > 0
	for _, body := range sortedKeys(holding) {
		if _, ok := h.grasped[body]; !ok {
			h.grasped[body] = struct{}{}
			h.emit(Event{Kind: EventGrabBegin, Body: body.Name})
		}
	}
	for _, body := range sortedKeys(h.grasped) {
		if _, ok := holding[body]; !ok {
			delete(h.grasped, body)
			h.emit(Event{Kind: EventGrabEnd, Body: body.Name})
		}
	}
}

// PostStep runs after the physics step has settled: it recovers a body
// that diverged from tracking and drops grasped bodies that ended the step
// out of reach of every grabbing bone.
func (h *Hand) PostStep(tick Tick) {
	if h.state != StateTracked {
		return
	}
	h.tick = tick

	// Step 1: divergence recovery.
	if h.recoveryLeft > 0 {
		h.recoveryLeft--
		if h.recoveryLeft == 0 {
			h.driver.SetImmovable(false)
		}
	} else if d := geometry.Distance(h.driver.SimulatedPose().Palm.Position, h.target.Palm.Position); d > h.cfg.DivergenceThreshold {
		h.driver.Teleport(h.target)
		h.driver.SetImmovable(true)
		h.recoveryLeft = h.cfg.RecoveryHoldSteps
		h.emit(Event{Kind: EventTeleport, Distance: d})
		monitoring.Logf("[hands] %s hand diverged %.3fm from tracking; teleported", h.Chirality, d)
	}

	// Step 2: finalise the grasped set against settled positions.
	if len(h.grasped) == 0 {
		return
	}
	settled := h.driver.SimulatedPose()
	for i, b := range h.bones {
		b.SetPose(settled.Bone(skeleton.BoneFromIndex(i)))
	}
	for _, body := range sortedKeys(h.grasped) {
		if h.withinReach(body) {
			continue
		}
		delete(h.grasped, body)
		for _, b := range h.bones {
			if containsBody(b.GrabbedBodies(), body) {
				b.SetGrabbing(len(b.GrabbedBodies()) > 1, withoutBody(b.GrabbedBodies(), body))
			}
		}
		h.emit(Event{Kind: EventGrabEnd, Body: body.Name})
	}
	h.isGrabbing = len(h.grasped) > 0
}

// withinReach reports whether some bone grabbing body is still within
// hover range of one of the body's colliders.
func (h *Hand) withinReach(body *collider.Body) bool {
	hover := h.cfg.Thresholds.Hover
	for _, b := range h.bones {
		if !containsBody(b.GrabbedBodies(), body) {
			continue
		}
		rel, ok := b.Relation(body)
		if !ok {
			continue
		}
		for _, cc := range rel.Contacts() {
			if b.Measure(cc.Collider).Distance <= hover {
				return true
			}
		}
	}
	return false
}

func (h *Hand) resetContacts() {
	for _, b := range h.bones {
		b.Reset()
	}
	h.isHovering, h.isContacting, h.isIntersecting, h.isCloseToObject = false, false, false, false
	h.isGrabbing = false
	h.diffBodies(h.hovered, nil, EventHoverEnd, EventHoverBegin)
	h.diffBodies(h.contacted, nil, EventContactEnd, EventContactBegin)
	for _, body := range sortedKeys(h.grasped) {
		delete(h.grasped, body)
		h.emit(Event{Kind: EventGrabEnd, Body: body.Name})
	}
}

// Bone returns the contact bone for id.
func (h *Hand) Bone(id skeleton.BoneID) *contact.Bone { return h.bones[id.Index()] }

// Bones returns every bone, palm first.
func (h *Hand) Bones() []*contact.Bone { return h.bones[:] }

func (h *Hand) State() State              { return h.state }
func (h *Hand) Session() uuid.UUID        { return h.session }
func (h *Hand) Tracked() bool             { return h.state == StateTracked }
func (h *Hand) Resetting() bool           { return h.state == StateResetting }
func (h *Hand) IsHovering() bool          { return h.isHovering }
func (h *Hand) IsContacting() bool        { return h.isContacting }
func (h *Hand) IsIntersecting() bool      { return h.isIntersecting }
func (h *Hand) IsCloseToObject() bool     { return h.isCloseToObject }
func (h *Hand) IsGrabbing() bool          { return h.isGrabbing }
func (h *Hand) Target() skeleton.HandPose { return h.target }
func (h *Hand) Driver() BodyDriver        { return h.driver }

// IsGrasping reports whether body is in the hand's grasped set.
func (h *Hand) IsGrasping(body *collider.Body) bool {
	_, ok := h.grasped[body]
	return ok
}

// GraspedBodies returns the grasped set ordered by body ID.
func (h *Hand) GraspedBodies() []*collider.Body { return sortedKeys(h.grasped) }

// SimulatedPose is the settled pose of the physical hand.
func (h *Hand) SimulatedPose() skeleton.HandPose { return h.driver.SimulatedPose() }

func (h *Hand) emit(e Event) {
	if h.sink == nil {
		return
	}
	e.Session = h.session
	e.Hand = h.Chirality
	e.Step = h.tick.Step
	e.Time = h.tick.Time
	h.sink.HandEvent(e)
}

// diffBodies emits end events for bodies in prev but not next, begin
// events for the reverse, and leaves prev equal to next.
func (h *Hand) diffBodies(prev, next map[*collider.Body]float64, endKind, beginKind EventKind) {
	for _, body := range sortedKeys(prev) {
		if _, ok := next[body]; !ok {
			delete(prev, body)
			h.emit(Event{Kind: endKind, Body: body.Name, Distance: math.Inf(1)})
		}
	}
	for _, body := range sortedKeys(next) {
		if _, ok := prev[body]; !ok {
			h.emit(Event{Kind: beginKind, Body: body.Name, Distance: next[body]})
		}
		prev[body] = next[body]
	}
}

func sortedKeys[V any](m map[*collider.Body]V) []*collider.Body {
	out := make([]*collider.Body, 0, len(m))
	for b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func containsBody(bodies []*collider.Body, body *collider.Body) bool {
	for _, b := range bodies {
		if b == body {
			return true
		}
	}
	return false
}

func withoutBody(bodies []*collider.Body, body *collider.Body) []*collider.Body {
	out := make([]*collider.Body, 0, len(bodies))
	for _, b := range bodies {
		if b != body {
			out = append(out, b)
		}
	}
	return out
}

func unionBodies(a, b []*collider.Body) []*collider.Body {
	out := append([]*collider.Body(nil), a...)
	for _, body := range b {
		if !containsBody(out, body) {
			out = append(out, body)
		}
	}
	return out
}
