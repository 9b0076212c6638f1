package timeutil

import (
	"math"
	"testing"
	"time"
)

func TestFixedStep_Advance(t *testing.T) {
	tests := []struct {
		name    string
		step    time.Duration
		max     int
		ticks   []time.Duration
		want    []int
		dropped int64
	}{
		{
			name:  "exact multiples",
			step:  20 * time.Millisecond,
			ticks: []time.Duration{20 * time.Millisecond, 40 * time.Millisecond},
			want:  []int{1, 2},
		},
		{
			name:  "remainder carries over",
			step:  20 * time.Millisecond,
			ticks: []time.Duration{11 * time.Millisecond, 11 * time.Millisecond, 11 * time.Millisecond, 11 * time.Millisecond},
			want:  []int{0, 1, 0, 1},
		},
		{
			name:    "cap discards catch-up",
			step:    10 * time.Millisecond,
			max:     3,
			ticks:   []time.Duration{100 * time.Millisecond, 10 * time.Millisecond},
			want:    []int{3, 1},
			dropped: 7,
		},
		{
			name:  "negative elapsed ignored",
			step:  10 * time.Millisecond,
			ticks: []time.Duration{-5 * time.Millisecond, 10 * time.Millisecond},
			want:  []int{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFixedStep(tt.step, tt.max)
			for i, tick := range tt.ticks {
				if got := f.Advance(tick); got != tt.want[i] {
					t.Errorf("tick %d: Advance(%v) = %d, want %d", i, tick, got, tt.want[i])
				}
			}
			if f.Dropped() != tt.dropped {
				t.Errorf("Dropped() = %d, want %d", f.Dropped(), tt.dropped)
			}
		})
	}
}

func TestFixedStep_AlphaAndReset(t *testing.T) {
	f := NewFixedStep(20*time.Millisecond, 0)
	f.Advance(25 * time.Millisecond)

	if a := f.Alpha(); math.Abs(a-0.25) > 1e-9 {
		t.Errorf("Alpha() = %f, want 0.25", a)
	}

	f.Reset()
	if f.Alpha() != 0 || f.Dropped() != 0 {
		t.Errorf("Reset should clear state, alpha=%f dropped=%d", f.Alpha(), f.Dropped())
	}
}

func TestFixedStep_ZeroStep(t *testing.T) {
	f := NewFixedStep(0, 0)
	if n := f.Advance(time.Second); n != 0 {
		t.Errorf("zero step should release nothing, got %d", n)
	}
	if f.Alpha() != 0 {
		t.Errorf("zero step alpha should be 0")
	}
}
