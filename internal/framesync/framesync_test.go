package framesync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/collider"
	"github.com/banshee-data/handcontact/internal/config"
	"github.com/banshee-data/handcontact/internal/contact"
	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/hands"
	"github.com/banshee-data/handcontact/internal/layers"
	"github.com/banshee-data/handcontact/internal/monitoring"
	"github.com/banshee-data/handcontact/internal/skeleton"
	"github.com/banshee-data/handcontact/internal/timeutil"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type eventLog struct{ events []hands.Event }

func (l *eventLog) HandEvent(e hands.Event) { l.events = append(l.events, e) }

func (l *eventLog) find(k hands.EventKind) []hands.Event {
	var out []hands.Event
	for _, e := range l.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func testConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

func leftHand(center r3.Vec) skeleton.HandPose {
	return skeleton.NewHandPose(skeleton.Left, skeleton.DefaultDimensions(), center, geometry.Identity, 0)
}

func frame(id uint64, ts time.Time, poses ...skeleton.HandPose) TrackingFrame {
	return TrackingFrame{ID: id, Timestamp: ts, Hands: poses}
}

func exhaustedRegistry(t *testing.T) *layers.Registry {
	t.Helper()
	reg := layers.NewRegistry()
	for i := 1; i < layers.MaxLayers; i++ {
		_, err := reg.Allocate(fmt.Sprintf("game-%d", i))
		require.NoError(t, err)
	}
	return reg
}

func TestNew_DisabledWhenLayersExhausted(t *testing.T) {
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})
	monitoring.ResetOnce()
	t.Cleanup(func() {
		monitoring.SetLogger(nil)
		monitoring.ResetOnce()
	})

	s := New(testConfig(), exhaustedRegistry(t), collider.NewScene())
	assert.False(t, s.Enabled())
	assert.True(t, errors.Is(s.Err(), ErrDisabled))
	assert.True(t, errors.Is(s.Err(), layers.ErrNoFreeLayer))
	assert.Nil(t, s.Hand(skeleton.Left))

	assert.ErrorIs(t, s.OnTrackingFrame(frame(1, t0, leftHand(r3.Vec{}))), ErrDisabled)
	assert.ErrorIs(t, s.OnSimulationStep(t0), ErrDisabled)
	_, err := s.OnQueryStep()
	assert.ErrorIs(t, err, ErrDisabled)

	New(testConfig(), exhaustedRegistry(t), collider.NewScene())
	assert.Len(t, logged, 1, "disabled diagnostic is logged once")
}

func TestSynchronizer_QueryStepIsReadOnly(t *testing.T) {
	s := New(testConfig(), layers.NewRegistry(), collider.NewScene())
	require.NoError(t, s.Err())

	require.NoError(t, s.OnTrackingFrame(frame(1, t0, leftHand(r3.Vec{}))))
	before, err := s.OnQueryStep()
	require.NoError(t, err)
	assert.False(t, before.Hand(skeleton.Left).Tracked, "tracking alone does not begin a hand")

	require.NoError(t, s.OnSimulationStep(t0))
	a, err := s.OnQueryStep()
	require.NoError(t, err)
	b, err := s.OnQueryStep()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, uint64(1), s.Steps())
	assert.Equal(t, uint64(1), a.Step)
	assert.Equal(t, uint64(1), a.TrackingFrameID)
	assert.True(t, a.Hand(skeleton.Left).Tracked)
	assert.False(t, a.Hand(skeleton.Right).Tracked)
}

func TestSynchronizer_TrackingLossAndReset(t *testing.T) {
	log := &eventLog{}
	cfg := testConfig()
	s := New(cfg, layers.NewRegistry(), collider.NewScene(), WithEventSink(log))

	require.NoError(t, s.OnTrackingFrame(frame(1, t0, leftHand(r3.Vec{}))))
	// Runs more often than tracking: the latest pose is reused.
	for i := 0; i < 3; i++ {
		require.NoError(t, s.OnSimulationStep(t0.Add(time.Duration(i)*cfg.FixedStep)))
	}
	assert.Equal(t, hands.StateTracked, s.Hand(skeleton.Left).State())

	require.NoError(t, s.OnTrackingFrame(frame(2, t0.Add(time.Second))))
	require.NoError(t, s.OnSimulationStep(t0.Add(time.Second)))
	out, _ := s.OnQueryStep()
	assert.True(t, out.Hand(skeleton.Left).Resetting)
	assert.False(t, out.Hand(skeleton.Left).Tracked)

	for i := 0; i < cfg.Hands.ResetHoldSteps; i++ {
		require.NoError(t, s.OnSimulationStep(t0.Add(time.Second)))
	}
	assert.Equal(t, hands.StateInactive, s.Hand(skeleton.Left).State())

	require.Len(t, log.find(hands.EventHandBegin), 1)
	require.Len(t, log.find(hands.EventHandFinish), 1)
	require.Len(t, log.find(hands.EventHandLost), 1)
	assert.Equal(t, uint64(1), log.find(hands.EventHandBegin)[0].Step)
	assert.Equal(t, uint64(4), log.find(hands.EventHandFinish)[0].Step)
}

func TestSynchronizer_PostPassRunsOneStepLate(t *testing.T) {
	log := &eventLog{}
	lagging := hands.NewKinematicDriver()
	lagging.Follow = 0.1
	s := New(testConfig(), layers.NewRegistry(), collider.NewScene(),
		WithEventSink(log), WithDrivers(lagging, nil))

	require.NoError(t, s.OnTrackingFrame(frame(1, t0, leftHand(r3.Vec{}))))
	require.NoError(t, s.OnSimulationStep(t0))

	require.NoError(t, s.OnTrackingFrame(frame(2, t0, leftHand(r3.Vec{X: 1}))))
	require.NoError(t, s.OnSimulationStep(t0))
	assert.Empty(t, log.find(hands.EventTeleport), "step 2 has not settled yet")

	require.NoError(t, s.OnSimulationStep(t0))
	teleports := log.find(hands.EventTeleport)
	require.Len(t, teleports, 1)
	assert.Equal(t, uint64(2), teleports[0].Step, "post pass reports the step it settles")
	assert.Equal(t, 1, lagging.Teleports())
}

func TestSynchronizer_InterpolatesPoses(t *testing.T) {
	cfg := testConfig()
	cfg.InterpolatePoses = true
	s := New(cfg, layers.NewRegistry(), collider.NewScene())

	require.NoError(t, s.OnTrackingFrame(frame(1, t0, leftHand(r3.Vec{}))))
	require.NoError(t, s.OnTrackingFrame(frame(2, t0.Add(100*time.Millisecond), leftHand(r3.Vec{X: 0.1}))))
	require.NoError(t, s.OnSimulationStep(t0.Add(50*time.Millisecond)))

	out, err := s.OnQueryStep()
	require.NoError(t, err)
	assert.InDelta(t, 0.05, out.Hand(skeleton.Left).Pose.Palm.Position.X, 1e-9)

	// Without interpolation the latest frame wins.
	cfg.InterpolatePoses = false
	s = New(cfg, layers.NewRegistry(), collider.NewScene())
	require.NoError(t, s.OnTrackingFrame(frame(1, t0, leftHand(r3.Vec{}))))
	require.NoError(t, s.OnTrackingFrame(frame(2, t0.Add(100*time.Millisecond), leftHand(r3.Vec{X: 0.1}))))
	require.NoError(t, s.OnSimulationStep(t0.Add(50*time.Millisecond)))
	out, _ = s.OnQueryStep()
	assert.InDelta(t, 0.1, out.Hand(skeleton.Left).Pose.Palm.Position.X, 1e-12)
}

func TestSynchronizer_DuplicateChiralityUsesFirst(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	s := New(testConfig(), layers.NewRegistry(), collider.NewScene())
	require.NoError(t, s.OnTrackingFrame(frame(1, t0, leftHand(r3.Vec{}), leftHand(r3.Vec{X: 5}))))
	require.NoError(t, s.OnSimulationStep(t0))
	out, _ := s.OnQueryStep()
	assert.Equal(t, r3.Vec{}, out.Hand(skeleton.Left).Pose.Palm.Position)
}

func TestSynchronizer_HoverPublished(t *testing.T) {
	reg := layers.NewRegistry()
	scene := collider.NewScene()
	interactable, err := reg.Allocate(layers.InteractableLayerName)
	require.NoError(t, err)

	gap := skeleton.DefaultDimensions().PalmThickness/2 + 0.05 + 0.01
	ball := &collider.Body{ID: 1, Name: "ball"}
	require.NoError(t, scene.Add(collider.NewSphere(1, ball, interactable, r3.Vec{Y: -gap}, 0.05)))

	s := New(testConfig(), reg, scene)
	require.NoError(t, s.OnTrackingFrame(frame(1, t0, leftHand(r3.Vec{}))))
	require.NoError(t, s.OnSimulationStep(t0))

	out, err := s.OnQueryStep()
	require.NoError(t, err)
	left := out.Hand(skeleton.Left)
	assert.True(t, left.IsHovering)
	assert.False(t, left.IsContacting)
	assert.True(t, left.Bones[skeleton.PalmBone.Index()].Hovering)
	assert.InDelta(t, 0.01, left.Bones[skeleton.PalmBone.Index()].ObjectDistance, 1e-9)
	assert.False(t, out.Hand(skeleton.Right).IsHovering)
}

// palmGrabber grabs whatever the palm hovers over.
type palmGrabber struct{}

func (palmGrabber) Detect(h *hands.Hand) hands.GrabInput {
	var in hands.GrabInput
	palm := h.Bone(skeleton.PalmBone)
	for _, rel := range palm.Relations() {
		in[skeleton.PalmBone.Index()] = append(in[skeleton.PalmBone.Index()], rel.Body)
	}
	return in
}

func TestSynchronizer_DebugFrameSeesThisStepsGrab(t *testing.T) {
	reg := layers.NewRegistry()
	scene := collider.NewScene()
	interactable, err := reg.Allocate(layers.InteractableLayerName)
	require.NoError(t, err)

	gap := skeleton.DefaultDimensions().PalmThickness/2 + 0.05 + 0.01
	ball := &collider.Body{ID: 1, Name: "ball"}
	require.NoError(t, scene.Add(collider.NewSphere(1, ball, interactable, r3.Vec{Y: -gap}, 0.05)))

	dc := contact.NewDebugCollector()
	dc.SetEnabled(true)
	s := New(testConfig(), reg, scene, WithDetector(palmGrabber{}), WithDebugCollector(dc))
	require.NoError(t, s.OnTrackingFrame(frame(1, t0, leftHand(r3.Vec{}))))
	require.NoError(t, s.OnSimulationStep(t0))

	out, err := s.OnQueryStep()
	require.NoError(t, err)
	palm := out.Hand(skeleton.Left).Bones[skeleton.PalmBone.Index()]
	require.True(t, palm.Grabbing)

	df := s.LastDebugFrame()
	require.NotNil(t, df)
	assert.Equal(t, uint64(1), df.Step)
	require.Len(t, df.Bones, skeleton.NumBones, "only the tracked hand is recorded")
	for _, b := range df.Bones {
		if b.Bone != skeleton.PalmBone.String() {
			continue
		}
		assert.Equal(t, "left", b.Hand)
		assert.True(t, b.Grabbing)
		assert.Equal(t, "ball", b.NearestBody)
		return
	}
	t.Fatal("palm missing from debug frame")
}

type scriptedSource struct {
	frames []TrackingFrame
}

func (s *scriptedSource) Next(time.Time) (TrackingFrame, bool) {
	if len(s.frames) == 0 {
		return TrackingFrame{}, false
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, true
}

func TestRunner_FixedStepCadence(t *testing.T) {
	clock := timeutil.NewMockClock(t0)
	s := New(testConfig(), layers.NewRegistry(), collider.NewScene())
	src := &scriptedSource{frames: []TrackingFrame{frame(1, t0, leftHand(r3.Vec{}))}}
	r := NewRunner(s, clock, src)

	var queries []OutputFrame
	r.OnQuery = func(f OutputFrame) { queries = append(queries, f) }

	clock.Advance(50 * time.Millisecond)
	n, err := r.Tick()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	clock.Advance(30 * time.Millisecond)
	n, err = r.Tick()
	require.NoError(t, err)
	assert.Equal(t, 2, n, "10ms carried over plus 30ms")

	clock.Advance(5 * time.Millisecond)
	n, err = r.Tick()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.Len(t, queries, 3)
	assert.Equal(t, uint64(4), queries[2].Step, "query step republishes without stepping")
	assert.True(t, queries[2].Hand(skeleton.Left).Tracked)

	clock.Advance(time.Second)
	n, err = r.Tick()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(45), r.DroppedSteps())
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	clock := timeutil.NewMockClock(t0)
	s := New(testConfig(), layers.NewRegistry(), collider.NewScene())
	r := NewRunner(s, clock, nil)

	ticked := make(chan struct{}, 1)
	r.OnQuery = func(OutputFrame) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		clock.Advance(10 * time.Millisecond)
		select {
		case <-ticked:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunner_DisabledSynchronizer(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	clock := timeutil.NewMockClock(t0)
	s := New(testConfig(), exhaustedRegistry(t), collider.NewScene())
	r := NewRunner(s, clock, nil)
	clock.Advance(40 * time.Millisecond)
	_, err := r.Tick()
	assert.ErrorIs(t, err, ErrDisabled)
}
