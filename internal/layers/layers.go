// Package layers allocates collision layers for the hand bones and the
// objects they interact with.
//
// Layer identifiers are resolved once, at construction, from a Registry
// and carried around in a Config value. Nothing here is global.
package layers

import (
	"errors"
	"fmt"
	"sync"
)

// MaxLayers is the number of layer slots a Registry manages.
const MaxLayers = 32

// Layer identifies one collision layer, 0..MaxLayers-1.
type Layer uint8

// Mask is a bit set of layers.
type Mask uint32

// Bit returns the mask containing only l.
func (l Layer) Bit() Mask { return Mask(1) << l }

// Has reports whether the mask contains l.
func (m Mask) Has(l Layer) bool { return m&l.Bit() != 0 }

// With returns m plus l.
func (m Mask) With(l Layer) Mask { return m | l.Bit() }

// Without returns m minus l.
func (m Mask) Without(l Layer) Mask { return m &^ l.Bit() }

// AllLayers matches every layer.
const AllLayers Mask = ^Mask(0)

var (
	// ErrNoFreeLayer is returned when every slot in the registry is taken.
	ErrNoFreeLayer = errors.New("no free collision layer")
	// ErrUnknownLayer is returned when looking up a name that was never allocated.
	ErrUnknownLayer = errors.New("unknown collision layer")
)

// Registry hands out named layers. Slot 0 is reserved for the default
// layer and is allocated at construction.
type Registry struct {
	mu     sync.Mutex
	names  [MaxLayers]string
	byName map[string]Layer
}

// DefaultLayerName is the name of slot 0.
const DefaultLayerName = "default"

// NewRegistry returns a registry with only the default layer in use.
func NewRegistry() *Registry {
	r := &Registry{byName: map[string]Layer{DefaultLayerName: 0}}
	r.names[0] = DefaultLayerName
	return r
}

// Allocate returns the layer registered under name, claiming the lowest
// free slot if the name is new.
func (r *Registry) Allocate(name string) (Layer, error) {
	if name == "" {
		return 0, fmt.Errorf("allocate layer: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.byName[name]; ok {
		return l, nil
	}
	for i := range r.names {
		if r.names[i] == "" {
			r.names[i] = name
			r.byName[name] = Layer(i)
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("allocate layer %q: %w", name, ErrNoFreeLayer)
}

// Lookup returns the layer registered under name.
func (r *Registry) Lookup(name string) (Layer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("lookup layer %q: %w", name, ErrUnknownLayer)
	}
	return l, nil
}

// Free releases a named layer. The default layer cannot be freed.
func (r *Registry) Free(name string) {
	if name == DefaultLayerName {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.byName[name]; ok {
		r.names[l] = ""
		delete(r.byName, name)
	}
}

// InUse returns the number of allocated slots.
func (r *Registry) InUse() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}

// Names of the layers the contact engine claims.
const (
	HandLayerName         = "hands"
	ResetLayerName        = "hands_reset"
	InteractableLayerName = "interactable"
)

// Config holds the resolved layers used by the contact engine.
type Config struct {
	// Hand is the layer the physical hand bones live on.
	Hand Layer
	// Reset is the layer a hand is moved to while it is resetting, so it
	// stops colliding with the scene.
	Reset Layer
	// Interactable is the layer of objects that may be grabbed.
	Interactable Layer
	// QueryMask selects the colliders returned by bone broad-phase queries.
	// Everything except the hand layers.
	QueryMask Mask
}

// Resolve claims (or finds) the layers needed by the contact engine.
// It fails fast with ErrNoFreeLayer if the registry is exhausted.
func Resolve(r *Registry) (Config, error) {
	var (
		got   [3]Layer
		added []string
	)
	for i, name := range []string{HandLayerName, ResetLayerName, InteractableLayerName} {
		_, lookupErr := r.Lookup(name)
		l, err := r.Allocate(name)
		if err != nil {
			for _, n := range added {
				r.Free(n)
			}
			return Config{}, err
		}
		if lookupErr != nil {
			added = append(added, name)
		}
		got[i] = l
	}
	hand, reset, interactable := got[0], got[1], got[2]
	return Config{
		Hand:         hand,
		Reset:        reset,
		Interactable: interactable,
		QueryMask:    AllLayers.Without(hand).Without(reset),
	}, nil
}
