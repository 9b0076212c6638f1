package framesync

import (
	"context"
	"time"

	"github.com/banshee-data/handcontact/internal/timeutil"
)

// TrackingSource yields tracking frames as they arrive. Next returns
// false when no new frame is available at now.
type TrackingSource interface {
	Next(now time.Time) (TrackingFrame, bool)
}

// Runner is a host loop: on each variable-rate tick it forwards new
// tracking, runs the due fixed steps and then a query step.
type Runner struct {
	sync   *Synchronizer
	clock  timeutil.Clock
	source TrackingSource
	fixed  *timeutil.FixedStep

	last    time.Time
	simTime time.Time

	// OnQuery, if set, receives the output frame after every tick.
	OnQuery func(OutputFrame)
}

// NewRunner builds a runner using the synchronizer's fixed step settings.
func NewRunner(s *Synchronizer, clock timeutil.Clock, source TrackingSource) *Runner {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	now := clock.Now()
	return &Runner{
		sync:    s,
		clock:   clock,
		source:  source,
		fixed:   timeutil.NewFixedStep(s.cfg.FixedStep, s.cfg.MaxStepsPerTick),
		last:    now,
		simTime: now,
	}
}

// Tick runs one variable-rate iteration and returns the number of fixed
// steps simulated.
func (r *Runner) Tick() (int, error) {
	now := r.clock.Now()
	elapsed := now.Sub(r.last)
	r.last = now

	if r.source != nil {
		if f, ok := r.source.Next(now); ok {
			if err := r.sync.OnTrackingFrame(f); err != nil {
				return 0, err
			}
		}
	}

	steps := r.fixed.Advance(elapsed)
	for i := 0; i < steps; i++ {
		r.simTime = r.simTime.Add(r.fixed.Step)
		if err := r.sync.OnSimulationStep(r.simTime); err != nil {
			return i, err
		}
	}
	// Steps dropped by the cap are not simulated; keep simulation time
	// from falling ever further behind.
	if lag := now.Sub(r.simTime); lag > r.fixed.Step {
		r.simTime = now.Add(-time.Duration(r.fixed.Alpha() * float64(r.fixed.Step)))
	}

	out, err := r.sync.OnQueryStep()
	if err != nil {
		return steps, err
	}
	if r.OnQuery != nil {
		r.OnQuery(out)
	}
	return steps, nil
}

// DroppedSteps returns how many fixed steps were skipped by the per-tick cap.
func (r *Runner) DroppedSteps() int64 { return r.fixed.Dropped() }

// Run calls Tick every interval until ctx is cancelled or a tick fails.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if _, err := r.Tick(); err != nil {
				return err
			}
		}
	}
}
