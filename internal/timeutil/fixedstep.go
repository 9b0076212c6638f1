package timeutil

import "time"

// FixedStep accumulates variable-length wall-clock intervals and releases
// them as a whole number of fixed-length simulation steps. The remainder
// carries over to the next call, so the long-run step rate matches the
// configured step regardless of how irregular the caller's ticks are.
type FixedStep struct {
	Step     time.Duration
	MaxSteps int // 0 means unbounded

	accum   time.Duration
	dropped int64
}

// NewFixedStep returns an accumulator for the given step length. maxSteps
// caps the steps released by a single Advance call; excess time is
// discarded so a long stall cannot trigger an ever-growing catch-up.
func NewFixedStep(step time.Duration, maxSteps int) *FixedStep {
	return &FixedStep{Step: step, MaxSteps: maxSteps}
}

// Advance adds elapsed to the accumulator and returns how many fixed steps
// are now due.
func (f *FixedStep) Advance(elapsed time.Duration) int {
	if f.Step <= 0 {
		return 0
	}
	if elapsed > 0 {
		f.accum += elapsed
	}

	n := int(f.accum / f.Step)
	f.accum -= time.Duration(n) * f.Step

	if f.MaxSteps > 0 && n > f.MaxSteps {
		f.dropped += int64(n - f.MaxSteps)
		n = f.MaxSteps
	}
	return n
}

// Alpha returns the fraction of a step currently sitting in the
// accumulator, in [0, 1).
func (f *FixedStep) Alpha() float64 {
	if f.Step <= 0 {
		return 0
	}
	return float64(f.accum) / float64(f.Step)
}

// Dropped returns the total number of steps discarded by the MaxSteps cap.
func (f *FixedStep) Dropped() int64 {
	return f.dropped
}

// Reset clears accumulated time and the dropped counter.
func (f *FixedStep) Reset() {
	f.accum = 0
	f.dropped = 0
}
