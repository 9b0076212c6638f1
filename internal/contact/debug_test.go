package contact

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/collider"
)

func TestDebugCollector_DisabledIsNoop(t *testing.T) {
	c := NewDebugCollector()
	assert.False(t, c.IsEnabled())

	c.BeginFrame(1)
	c.RecordBone(fingerBone(middle, 0.01, 0.02))
	assert.Nil(t, c.Emit())

	var nilCollector *DebugCollector
	assert.False(t, nilCollector.IsEnabled())
}

func TestDebugCollector_RecordBone(t *testing.T) {
	c := NewDebugCollector()
	c.SetEnabled(true)

	idle := fingerBone(middle, 0.01, 0.02)
	idle.ProcessCandidates(nil)

	busy := fingerBone(middle, 0.01, 0.02)
	busy.ProcessCandidates([]collider.Collider{
		sphere(1, &collider.Body{ID: 1, Name: "mug"}, r3.Vec{Y: -0.061, Z: -0.01}, 0.05),
	})

	c.BeginFrame(42)
	c.RecordBone(idle)
	c.RecordBone(busy)
	frame := c.Emit()
	require.NotNil(t, frame)
	assert.Equal(t, uint64(42), frame.Step)

	require.Len(t, frame.Bones, 2)
	assert.True(t, math.IsNaN(frame.Bones[0].Distance))
	assert.Equal(t, "middle_1", frame.Bones[1].Bone)
	assert.Equal(t, "left", frame.Bones[1].Hand)
	assert.Equal(t, "mug", frame.Bones[1].NearestBody)
	assert.True(t, frame.Bones[1].ReadyToGrab)

	require.Len(t, frame.Relations, 1)
	assert.Equal(t, "mug", frame.Relations[0].Body)
	assert.True(t, frame.Relations[0].GrabCandidate)
	assert.Equal(t, 1, frame.Relations[0].Colliders)

	assert.Nil(t, c.Emit(), "emit clears the frame")
	c.BeginFrame(43)
	c.Reset()
	assert.Nil(t, c.Emit())
}
