package collider

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/handcontact/internal/geometry"
	"github.com/banshee-data/handcontact/internal/layers"
)

// Scene holds the colliders the hands can touch and answers broad-phase
// overlap queries. It is not safe for concurrent mutation; the contact
// engine runs on a single simulation goroutine.
type Scene struct {
	colliders []Collider
	index     map[ID]int
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{index: make(map[ID]int)}
}

// Add registers c. IDs must be unique within the scene.
func (s *Scene) Add(c Collider) error {
	if c == nil {
		return fmt.Errorf("add collider: nil collider")
	}
	if _, ok := s.index[c.ID()]; ok {
		return fmt.Errorf("add collider %d: duplicate id", c.ID())
	}
	s.index[c.ID()] = len(s.colliders)
	s.colliders = append(s.colliders, c)
	return nil
}

// Remove unregisters the collider with the given id. It reports whether
// the collider was present.
func (s *Scene) Remove(id ID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	last := len(s.colliders) - 1
	if i != last {
		s.colliders[i] = s.colliders[last]
		s.index[s.colliders[i].ID()] = i
	}
	s.colliders[last] = nil
	s.colliders = s.colliders[:last]
	delete(s.index, id)
	return true
}

// Get returns the collider with the given id.
func (s *Scene) Get(id ID) (Collider, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.colliders[i], true
}

// Len returns the number of registered colliders.
func (s *Scene) Len() int { return len(s.colliders) }

// Colliders returns the registered colliders. The slice must not be modified.
func (s *Scene) Colliders() []Collider { return s.colliders }

// OverlapBox appends to dst every collider on a layer in mask whose bounds
// intersect bounds, and returns the extended slice.
func (s *Scene) OverlapBox(bounds r3.Box, mask layers.Mask, dst []Collider) []Collider {
	for _, c := range s.colliders {
		if !mask.Has(c.Layer()) {
			continue
		}
		if geometry.Overlaps(bounds, c.Bounds()) {
			dst = append(dst, c)
		}
	}
	return dst
}
