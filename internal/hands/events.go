package hands

import (
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/handcontact/internal/skeleton"
)

// EventKind names a hand transition.
type EventKind string

const (
	EventHandBegin    EventKind = "hand_begin"
	EventHandFinish   EventKind = "hand_finish"
	EventHandLost     EventKind = "hand_lost" // resetting expired, body deactivated
	EventHoverBegin   EventKind = "hover_begin"
	EventHoverEnd     EventKind = "hover_end"
	EventContactBegin EventKind = "contact_begin"
	EventContactEnd   EventKind = "contact_end"
	EventGrabBegin    EventKind = "grab_begin"
	EventGrabEnd      EventKind = "grab_end"
	EventTeleport     EventKind = "teleport"
)

// Event is one hand transition. Body is empty for hand-level events.
type Event struct {
	Kind     EventKind
	Session  uuid.UUID
	Hand     skeleton.Chirality
	Step     uint64
	Time     time.Time
	Body     string
	Distance float64
}

// EventSink receives hand transitions on the simulation goroutine.
type EventSink interface {
	HandEvent(e Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) HandEvent(e Event) { f(e) }

// Tick identifies the fixed step being simulated.
type Tick struct {
	Step uint64
	Time time.Time
}
