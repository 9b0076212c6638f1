package scenario

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/collider"
	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/layers"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// Tabletop prop layout, metres. World Y is up.
const (
	BallRadius = 0.035
	MugHeight  = 0.1
	MugRadius  = 0.04
	TableTop   = -BallRadius
)

// MugPosition is where the mug stands, clear of the ball.
var MugPosition = r3.Vec{X: 0.3, Y: TableTop + MugHeight/2}

// Tabletop is a small scene: a ball resting on a static table next to a
// mug. The table has no body and is never a contact candidate.
type Tabletop struct {
	Scene *collider.Scene
	Ball  *collider.Body
	Mug   *collider.Body
}

// NewTabletop builds the scene, placing the props on the interactable
// layer allocated in reg.
func NewTabletop(reg *layers.Registry) (*Tabletop, error) {
	interactable, err := reg.Allocate(layers.InteractableLayerName)
	if err != nil {
		return nil, fmt.Errorf("tabletop: %w", err)
	}

	t := &Tabletop{
		Scene: collider.NewScene(),
		Ball:  &collider.Body{ID: 1, Name: "ball"},
		Mug:   &collider.Body{ID: 2, Name: "mug"},
	}

	mug, err := collider.NewSDFCylinder(2, t.Mug, interactable, MugHeight, MugRadius, MugPosition)
	if err != nil {
		return nil, fmt.Errorf("tabletop mug: %w", err)
	}
	table := collider.NewBox(3, nil, 0, geometry.OrientedBox{
		Center:      r3.Vec{Y: TableTop - 0.025},
		Rotation:    geometry.Identity,
		HalfExtents: r3.Vec{X: 0.6, Y: 0.025, Z: 0.6},
	})

	for _, c := range []collider.Collider{
		collider.NewSphere(1, t.Ball, interactable, r3.Vec{}, BallRadius),
		mug,
		table,
	} {
		if err := t.Scene.Add(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Reach is the default script: a palm-down hand descends onto the ball
// from 20 cm above, stopping a millimetre short of it, then wraps its
// fingers. Tracking drops out briefly on the way down.
func Reach(hand skeleton.Chirality) Script {
	dims := skeleton.DefaultDimensions()
	rest := BallRadius + dims.PalmThickness/2 + 0.001
	return Script{
		Hand:          hand,
		Dims:          dims,
		Orientation:   geometry.Identity,
		Start:         r3.Vec{Y: rest + 0.2, Z: -0.02},
		End:           r3.Vec{Y: rest},
		Approach:      800 * time.Millisecond,
		Hold:          600 * time.Millisecond,
		OpenCurl:      0,
		ClosedCurl:    math.Pi / 5,
		FrameInterval: time.Second / 90,
		Dropouts:      []Window{{From: 300 * time.Millisecond, To: 360 * time.Millisecond}},
	}
}
