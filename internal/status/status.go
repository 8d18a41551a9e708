// Package status publishes the state of the current analysis run as an
// immutable snapshot behind an atomic pointer: one writer (the run
// goroutine), any number of readers (HTTP pollers). Readers never observe a
// partially updated state.
package status

import (
	"sync/atomic"
	"time"
)

// Phase is the lifecycle state of a run.
type Phase string

const (
	PhasePending Phase = "pending"
	PhaseRunning Phase = "running"
	PhaseDone    Phase = "done"
	PhaseFailed  Phase = "failed"
)

// Snapshot is one immutable observation of a run's state.
type Snapshot struct {
	RunID      string    `json:"run_id"`
	Phase      Phase     `json:"phase"`
	Progress   float64   `json:"progress"` // fraction of grid points done, 0..1
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Terminal reports whether the run has finished, successfully or not.
func (s Snapshot) Terminal() bool {
	return s.Phase == PhaseDone || s.Phase == PhaseFailed
}

// Tracker holds the latest snapshot per run ID. Writes must come from a
// single goroutine per run; reads are lock-free.
type Tracker struct {
	current atomic.Pointer[Snapshot]
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Publish replaces the current snapshot.
func (t *Tracker) Publish(s Snapshot) {
	t.current.Store(&s)
}

// Current returns the latest snapshot, or false when no run has started.
func (t *Tracker) Current() (Snapshot, bool) {
	p := t.current.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// Running reports whether a run is currently in a non-terminal phase.
func (t *Tracker) Running() bool {
	s, ok := t.Current()
	return ok && !s.Terminal()
}
