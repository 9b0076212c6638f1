package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/config"
	"github.com/banshee-data/handcontact/internal/framesync"
	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/hands"
	"github.com/banshee-data/handcontact/internal/layers"
	"github.com/banshee-data/handcontact/internal/monitoring"
	"github.com/banshee-data/handcontact/internal/skeleton"
	"github.com/banshee-data/handcontact/internal/timeutil"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSource_FollowsTrackingSchedule(t *testing.T) {
	src := NewSource(Reach(skeleton.Right))
	interval := time.Second / 90

	f, ok := src.Next(t0)
	require.True(t, ok)
	assert.Equal(t, uint64(1), f.ID)
	assert.Equal(t, t0, f.Timestamp)
	require.Len(t, f.Hands, 1)
	assert.Equal(t, skeleton.Right, f.Hands[0].Chirality)
	assert.Equal(t, t0, f.Hands[0].Timestamp)

	_, ok = src.Next(t0.Add(5 * time.Millisecond))
	assert.False(t, ok, "next frame not due yet")

	f, ok = src.Next(t0.Add(12 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, uint64(2), f.ID)
	assert.Equal(t, t0.Add(interval), f.Timestamp)

	// A long stall skips the missed frames and stamps the latest due one.
	f, ok = src.Next(t0.Add(100 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, uint64(3), f.ID)
	assert.Equal(t, t0.Add(9*interval), f.Timestamp)
	assert.Equal(t, 3, src.Emitted())
}

func TestSource_DropoutAndEnd(t *testing.T) {
	script := Reach(skeleton.Left)
	src := NewSource(script)
	_, ok := src.Next(t0)
	require.True(t, ok)

	f, ok := src.Next(t0.Add(320 * time.Millisecond))
	require.True(t, ok)
	assert.Empty(t, f.Hands, "hand is missing during the dropout window")

	f, ok = src.Next(t0.Add(400 * time.Millisecond))
	require.True(t, ok)
	assert.Len(t, f.Hands, 1)
	assert.False(t, src.Done(t0.Add(400*time.Millisecond)))

	end := t0.Add(script.Total() + 100*time.Millisecond)
	f, ok = src.Next(end)
	require.True(t, ok)
	assert.Empty(t, f.Hands)
	assert.True(t, src.Done(end))
}

func TestScript_PoseAt(t *testing.T) {
	s := Reach(skeleton.Right)

	assert.Equal(t, s.Start, s.PoseAt(0).Palm.Position)
	assert.Equal(t, s.End, s.PoseAt(s.Approach).Palm.Position)
	mid := s.PoseAt(s.Approach / 2).Palm.Position
	assert.InDelta(t, 0, geometry.Distance(geometry.Midpoint(s.Start, s.End), mid), 1e-12)
	assert.Equal(t, s.End, s.PoseAt(s.Total()).Palm.Position, "the palm holds still while the fingers close")

	open := s.PoseAt(s.Approach).Fingers[skeleton.Index][skeleton.Distal].Tip()
	closed := s.PoseAt(s.Total()).Fingers[skeleton.Index][skeleton.Distal].Tip()
	assert.Less(t, closed.Y, open.Y, "curling moves the fingertips towards the palmar side")

	assert.True(t, s.Tracked(0))
	assert.False(t, s.Tracked(310*time.Millisecond))
	assert.False(t, s.Tracked(s.Total()+time.Millisecond))
	assert.False(t, s.Tracked(-time.Millisecond))
}

func TestNewSource_Defaults(t *testing.T) {
	src := NewSource(Script{Approach: time.Second})
	assert.Equal(t, time.Second/90, src.Script().FrameInterval)
	assert.Equal(t, geometry.Identity, src.Script().Orientation)
}

func TestNewTabletop(t *testing.T) {
	reg := layers.NewRegistry()
	tt, err := NewTabletop(reg)
	require.NoError(t, err)
	assert.Equal(t, 3, tt.Scene.Len())

	lc, err := layers.Resolve(reg)
	require.NoError(t, err)

	// Only the ball is near the palm's resting place; the bodiless table is
	// filtered later by the contact tracker, not by the broad phase.
	box := geometry.Inflate(r3.Box{Min: r3.Vec{Y: BallRadius}, Max: r3.Vec{Y: BallRadius}}, 0.01)
	hits := tt.Scene.OverlapBox(box, lc.QueryMask, nil)
	require.Len(t, hits, 1)
	assert.Same(t, tt.Ball, hits[0].Body())
}

type eventLog struct{ events []hands.Event }

func (l *eventLog) HandEvent(e hands.Event) { l.events = append(l.events, e) }

func (l *eventLog) count(k hands.EventKind, body string) int {
	n := 0
	for _, e := range l.events {
		if e.Kind == k && e.Body == body {
			n++
		}
	}
	return n
}

func TestReach_EndToEnd(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(t.Logf) })

	reg := layers.NewRegistry()
	tt, err := NewTabletop(reg)
	require.NoError(t, err)

	log := &eventLog{}
	sync := framesync.New(framesync.ConfigFromTuning(config.MustLoadDefaultConfig()), reg, tt.Scene,
		framesync.WithEventSink(log))
	require.True(t, sync.Enabled())

	clock := timeutil.NewMockClock(t0)
	src := NewSource(Reach(skeleton.Right))
	runner := framesync.NewRunner(sync, clock, src)

	var (
		hovered   bool
		contacted bool
		final     framesync.OutputFrame
	)
	runner.OnQuery = func(out framesync.OutputFrame) {
		h := out.Hand(skeleton.Right)
		hovered = hovered || h.IsHovering
		contacted = contacted || h.IsContacting
		final = out
	}

	for i := 0; i < 160; i++ {
		clock.Advance(10 * time.Millisecond)
		_, err := runner.Tick()
		require.NoError(t, err)
	}

	assert.True(t, hovered)
	assert.True(t, contacted)
	assert.Equal(t, 1, log.count(hands.EventHoverBegin, "ball"))
	assert.GreaterOrEqual(t, log.count(hands.EventContactBegin, "ball"), 1)
	assert.Zero(t, log.count(hands.EventHoverBegin, "mug"))

	// Begin, lose tracking in the dropout, resume, and finish at the end.
	// The run stops before the resetting hold expires.
	assert.Equal(t, 1, log.count(hands.EventHandBegin, ""))
	assert.Equal(t, 2, log.count(hands.EventHandFinish, ""))

	assert.True(t, final.Hand(skeleton.Right).Resetting)
	assert.False(t, final.Hand(skeleton.Left).Tracked)
	assert.Zero(t, runner.DroppedSteps())
}
