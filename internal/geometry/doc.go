// Package geometry is the stateless nearest-point kernel used by the bone
// contact tracker.
//
// Responsibilities: point-to-segment projection for capsule bones,
// oriented rectangle sampling and classification for the palm, oriented
// box queries, and small rotation helpers on top of gonum's r3 package.
//
// Every function here is deterministic and allocation-free; they run once
// per bone, per candidate collider, per physics step.
package geometry
