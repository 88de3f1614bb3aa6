package core

import (
	"sync"
	"time"

	"github.com/lumipallolabs/fontdrop/internal/cancel"
	"github.com/lumipallolabs/fontdrop/internal/model"
	"github.com/lumipallolabs/fontdrop/internal/scanner"
)

// Run is one scan-then-install pass over a set of targets
type Run struct {
	ID      string
	Targets []model.ScanTarget

	signal *cancel.Flag
	events *Channel
	stage  *scanner.Stage

	mu    sync.RWMutex
	state RunState

	finishOnce sync.Once
	done       chan struct{}
}

func newRun(id string, targets []model.ScanTarget, stage *scanner.Stage) *Run {
	return &Run{
		ID:      id,
		Targets: targets,
		signal:  cancel.New(),
		events:  NewChannel(),
		stage:   stage,
		state:   RunState{Phase: PhaseIdle, StartTime: time.Now()},
		done:    make(chan struct{}),
	}
}

// Events returns the run's progress channel
func (r *Run) Events() *Channel {
	return r.events
}

// Cancel asks the run to stop at its next cancellation point
func (r *Run) Cancel() {
	r.signal.Set()
}

// Canceled reports whether Cancel was called
func (r *Run) Canceled() bool {
	return r.signal.IsSet()
}

// Done is closed after the terminal event has been sent
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// State returns a snapshot of the run's progress
func (r *Run) State() RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Phase returns the run's current phase
func (r *Run) Phase() Phase {
	return r.State().Phase
}

func (r *Run) update(fn func(*RunState)) {
	r.mu.Lock()
	fn(&r.state)
	r.mu.Unlock()
}

func (r *Run) setPhase(p Phase) {
	r.update(func(s *RunState) { s.Phase = p })
}
