// Package framesync bridges the variable-rate tracking and query cadence
// with the fixed-rate simulation step.
//
// Hand state is only mutated inside OnSimulationStep. OnTrackingFrame
// records input and OnQueryStep republishes the last output; neither
// touches simulation state.
package framesync

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/handcontact/internal/config"
	"github.com/banshee-data/handcontact/internal/contact"
	"github.com/banshee-data/handcontact/internal/grasp"
	"github.com/banshee-data/handcontact/internal/hands"
	"github.com/banshee-data/handcontact/internal/layers"
	"github.com/banshee-data/handcontact/internal/monitoring"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// ErrDisabled is returned by every entry point of a synchronizer that
// could not acquire its resources.
var ErrDisabled = errors.New("frame synchronizer disabled")

// Config holds synchronizer parameters. Hands.Layers is filled in by New.
type Config struct {
	Hands hands.Config
	// InterpolatePoses blends the previous and current tracking frames by
	// simulation time instead of using the latest frame as is.
	InterpolatePoses bool
	FixedStep        time.Duration
	MaxStepsPerTick  int
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Hands:            hands.ConfigFromTuning(cfg, layers.Config{}),
		InterpolatePoses: cfg.GetInterpolatePoses(),
		FixedStep:        cfg.GetFixedStep(),
		MaxStepsPerTick:  cfg.GetMaxStepsPerTick(),
	}
}

// TrackingFrame is one sample from the tracking source. Hands holds at
// most one pose per chirality; a missing chirality means that hand is not
// tracked.
type TrackingFrame struct {
	ID        uint64
	Timestamp time.Time
	Hands     []skeleton.HandPose
}

// OutputFrame is the reconciled hand state published after a fixed step.
type OutputFrame struct {
	Step            uint64
	Time            time.Time
	TrackingFrameID uint64
	Hands           [skeleton.NumHands]hands.Snapshot
}

// Hand returns the snapshot for chirality c.
func (f OutputFrame) Hand(c skeleton.Chirality) hands.Snapshot { return f.Hands[c] }

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithDetector replaces the default OppositionDetector.
func WithDetector(d grasp.Detector) Option {
	return func(s *Synchronizer) { s.detector = d }
}

// WithDrivers sets the physical hand drivers. Nil keeps the default
// kinematic driver for that hand.
func WithDrivers(left, right hands.BodyDriver) Option {
	return func(s *Synchronizer) { s.drivers = [skeleton.NumHands]hands.BodyDriver{left, right} }
}

// WithEventSink receives hand transitions.
func WithEventSink(sink hands.EventSink) Option {
	return func(s *Synchronizer) { s.sink = sink }
}

// WithDebugCollector records per-bone state for each fixed step.
func WithDebugCollector(c *contact.DebugCollector) Option {
	return func(s *Synchronizer) { s.debug = c }
}

// Synchronizer owns both hands and drives them from tracking frames.
// It is not safe for concurrent use: the host calls every entry point
// from its main loop.
type Synchronizer struct {
	cfg   Config
	err   error
	scene hands.CandidateSource

	hands    [skeleton.NumHands]*hands.Hand
	drivers  [skeleton.NumHands]hands.BodyDriver
	detector grasp.Detector
	sink     hands.EventSink
	debug    *contact.DebugCollector

	prev, current *TrackingFrame
	// handIndex maps a chirality to its pose in current.Hands, -1 if absent.
	handIndex [skeleton.NumHands]int
	prevIndex [skeleton.NumHands]int

	step        uint64
	pendingPost bool
	lastTick    hands.Tick
	output      OutputFrame
	debugFrame  *contact.DebugFrame
}

// New resolves collision layers from reg and builds both hands. If the
// layers cannot be allocated the synchronizer is returned disabled: it
// logs once, Err reports the cause and every entry point returns
// ErrDisabled.
func New(cfg Config, reg *layers.Registry, scene hands.CandidateSource, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		cfg:       cfg,
		scene:     scene,
		detector:  grasp.OppositionDetector{},
		handIndex: [skeleton.NumHands]int{-1, -1},
		prevIndex: [skeleton.NumHands]int{-1, -1},
	}
	for _, opt := range opts {
		opt(s)
	}

	lc, err := layers.Resolve(reg)
	if err != nil {
		s.err = fmt.Errorf("%w: %w", ErrDisabled, err)
		monitoring.LogOncef("framesync.disabled", "[framesync] hand contact disabled: %v", err)
		return s
	}
	s.cfg.Hands.Layers = lc

	for c := skeleton.Chirality(0); c < skeleton.NumHands; c++ {
		s.hands[c] = hands.New(c, s.cfg.Hands, s.drivers[c], s.sink)
	}
	s.output = s.snapshot(hands.Tick{})
	return s
}

// Err returns why the synchronizer is disabled, or nil.
func (s *Synchronizer) Err() error { return s.err }

// Enabled reports whether the synchronizer is running.
func (s *Synchronizer) Enabled() bool { return s.err == nil }

// Hand returns the hand for chirality c, nil when disabled.
func (s *Synchronizer) Hand(c skeleton.Chirality) *hands.Hand { return s.hands[c] }

// Steps returns the number of fixed steps simulated.
func (s *Synchronizer) Steps() uint64 { return s.step }

// LastDebugFrame returns the debug frame of the most recent step, if a
// debug collector is enabled.
func (s *Synchronizer) LastDebugFrame() *contact.DebugFrame { return s.debugFrame }

// OnTrackingFrame records the latest tracking frame. It does not touch
// simulation state.
func (s *Synchronizer) OnTrackingFrame(f TrackingFrame) error {
	if s.err != nil {
		return s.err
	}

	frame := f
	frame.Hands = append([]skeleton.HandPose(nil), f.Hands...)

	var index [skeleton.NumHands]int
	index[skeleton.Left], index[skeleton.Right] = -1, -1
	for i, pose := range frame.Hands {
		c := pose.Chirality
		if c < 0 || c >= skeleton.NumHands {
			monitoring.LogOncef("framesync.bad-chirality", "[framesync] ignoring pose with chirality %d", int(c))
			continue
		}
		if index[c] >= 0 {
			monitoring.LogOncef("framesync.duplicate-"+c.String(), "[framesync] frame %d has more than one %s hand; using the first", f.ID, c)
			continue
		}
		index[c] = i
	}

	s.prev, s.prevIndex = s.current, s.handIndex
	s.current, s.handIndex = &frame, index
	return nil
}

// OnSimulationStep runs one fixed step at simulation time now.
func (s *Synchronizer) OnSimulationStep(now time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.step++
	tick := hands.Tick{Step: s.step, Time: now}

	// Step 1: the previous step has settled; finish its bookkeeping.
	if s.pendingPost {
		for _, h := range s.hands {
			h.PostStep(s.lastTick)
		}
	}

	// Step 2: feed the latest tracking pose to each hand.
	for c, h := range s.hands {
		h.SetTick(tick)
		pose, ok := s.latestPose(skeleton.Chirality(c), now)
		switch {
		case ok && h.Tracked():
			h.UpdateHand(pose)
		case ok:
			h.BeginHand(pose)
		case h.Tracked():
			h.FinishHand()
		default:
			h.Idle()
		}
	}

	// Step 3: move the physical hands.
	for _, h := range s.hands {
		h.Drive()
	}

	// Step 4: contact tracking for both hands.
	hands.Step(s.hands[:], s.scene, tick)

	// Step 5: resolve grabs.
	s.debug.BeginFrame(s.step)
	for _, h := range s.hands {
		h.ApplyGrab(s.detector.Detect(h))
		h.RecordDebug(s.debug)
	}

	// Step 6: publish.
	s.output = s.snapshot(tick)
	if frame := s.debug.Emit(); frame != nil {
		s.debugFrame = frame
	}
	s.pendingPost = true
	s.lastTick = tick
	return nil
}

// OnQueryStep returns the most recent output frame. It never mutates
// simulation state. The returned frame shares its body slices with
// other callers and must not be modified.
func (s *Synchronizer) OnQueryStep() (OutputFrame, error) {
	if s.err != nil {
		return OutputFrame{}, s.err
	}
	return s.output, nil
}

// latestPose returns the pose to drive hand c towards at simulation time
// now.
func (s *Synchronizer) latestPose(c skeleton.Chirality, now time.Time) (skeleton.HandPose, bool) {
	if s.current == nil || s.handIndex[c] < 0 {
		return skeleton.HandPose{}, false
	}
	pose := s.current.Hands[s.handIndex[c]]
	if !s.cfg.InterpolatePoses || s.prev == nil || s.prevIndex[c] < 0 {
		return pose, true
	}

	from, to := s.prev.Timestamp, s.current.Timestamp
	span := to.Sub(from)
	if span <= 0 || from.IsZero() {
		return pose, true
	}
	alpha := float64(now.Sub(from)) / float64(span)
	return skeleton.Interpolate(s.prev.Hands[s.prevIndex[c]], pose, alpha), true
}

func (s *Synchronizer) snapshot(tick hands.Tick) OutputFrame {
	out := OutputFrame{Step: tick.Step, Time: tick.Time}
	if s.current != nil {
		out.TrackingFrameID = s.current.ID
	}
	for c, h := range s.hands {
		out.Hands[c] = h.Snapshot()
	}
	return out
}
