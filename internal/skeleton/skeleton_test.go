package skeleton

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/geometry"
)

func TestBoneIndexRoundTrip(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < NumBones; i++ {
		id := BoneFromIndex(i)
		assert.Equal(t, i, id.Index(), "bone %s", id)
		seen[id.Index()] = true
	}
	assert.Len(t, seen, NumBones)
	assert.Equal(t, 0, PalmBone.Index())
	assert.Equal(t, "index_2", FingerBone(Index, Distal).String())
	assert.Equal(t, "palm", PalmBone.String())
}

func TestChirality(t *testing.T) {
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "right", Right.String())
	assert.Equal(t, geometry.AxisX, Left.Radial())
	assert.Equal(t, r3.Vec{X: -1}, Right.Radial())
}

func TestNewHandPose_Open(t *testing.T) {
	dims := DefaultDimensions()
	hand := NewHandPose(Right, dims, r3.Vec{Y: 1}, geometry.Identity, 0)

	idx := hand.Fingers[Index]
	// Flat hand: finger joints are chained along +Z.
	assert.InDelta(t, 0, geometry.Distance(idx[0].Tip(), idx[1].Position), 1e-12)
	assert.InDelta(t, 0, geometry.Distance(idx[1].Tip(), idx[2].Position), 1e-12)
	assert.InDelta(t, 1, idx[2].Tip().Y, 1e-12)
	assert.Greater(t, idx[2].Tip().Z, dims.PalmLength/2)

	// Right hand: index and thumb sit on the -X side.
	assert.Less(t, idx[0].Position.X, 0.0)
	assert.Less(t, hand.Fingers[Thumb][2].Tip().X, hand.Fingers[Thumb][0].Position.X)
	assert.Greater(t, hand.Fingers[Pinky][0].Position.X, 0.0)
}

func TestNewHandPose_CurlMovesTipsPalmar(t *testing.T) {
	dims := DefaultDimensions()
	open := NewHandPose(Left, dims, r3.Vec{}, geometry.Identity, 0)
	curled := NewHandPose(Left, dims, r3.Vec{}, geometry.Identity, math.Pi/6)

	for f := Index; f <= Pinky; f++ {
		assert.InDelta(t, 0, open.Fingers[f][Distal].Tip().Y, 1e-12)
		assert.Less(t, curled.Fingers[f][Distal].Tip().Y, -0.01, "finger %s", f)
	}
}

func TestInterpolate(t *testing.T) {
	dims := DefaultDimensions()
	t0 := time.Unix(100, 0)
	a := NewHandPose(Left, dims, r3.Vec{}, geometry.Identity, 0)
	a.Timestamp = t0
	b := a.Translate(r3.Vec{X: 1})
	b.Timestamp = t0.Add(time.Second)

	mid := Interpolate(a, b, 0.5)
	assert.InDelta(t, 0.5, mid.Palm.Position.X, 1e-12)
	assert.InDelta(t, a.Fingers[Ring][1].Position.X+0.5, mid.Fingers[Ring][1].Position.X, 1e-12)
	assert.Equal(t, t0.Add(500*time.Millisecond), mid.Timestamp)

	assert.Equal(t, b.Palm.Position, Interpolate(a, b, 7).Palm.Position)
}

func TestHandPose_BoneAccessors(t *testing.T) {
	var h HandPose
	p := BonePose{Position: r3.Vec{Z: 3}, Length: 1}
	h.SetBone(FingerBone(Middle, Intermediate), p)
	h.SetBone(PalmBone, BonePose{Width: 2})
	assert.Equal(t, p, h.Bone(FingerBone(Middle, Intermediate)))
	assert.Equal(t, 2.0, h.Bone(PalmBone).Width)
	assert.Equal(t, r3.Vec{Z: 4}, r3.Add(p.Position, r3.Vec{Z: p.Length}))
}
