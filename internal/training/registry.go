package training

import (
	"sync"
	"time"
)

// Registry is the process-wide training status. A single mutex serializes
// every read and write so callers never observe a torn mix of old and new
// fields; the idle->training transition sets is_training and start_time in
// the same critical section.
type Registry struct {
	mu sync.Mutex
	st Status
}

func NewRegistry() *Registry {
	return &Registry{st: Status{State: StateIdle}}
}

// Snapshot returns a copy of the current status.
func (r *Registry) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st
}

// Begin claims the registry for a new run. When another run is active it
// returns ErrAlreadyTraining together with a snapshot of that run so the
// caller can report elapsed time. On success prior terminal fields are
// cleared and the start time is set atomically with the transition.
func (r *Registry) Begin(modelName string) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.st.IsTraining {
		return r.st, ErrAlreadyTraining
	}
	r.st = Status{
		IsTraining: true,
		State:      StateTraining,
		StartTime:  time.Now(),
		ModelName:  modelName,
	}
	return r.st, nil
}

// FinishIfTraining applies a terminal mutation only when the run is still in
// the training state. It returns false when a terminal state (typically
// stopped) was already recorded, so a late completion never overwrites it.
func (r *Registry) FinishIfTraining(apply func(st *Status)) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.st.State != StateTraining {
		return r.st, false
	}
	r.st.IsTraining = false
	apply(&r.st)
	return r.st, true
}

// ForceStop records the stopped terminal state. Only valid while a run is
// active; otherwise ErrNotTraining.
func (r *Registry) ForceStop(message string) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.st.IsTraining {
		return r.st, ErrNotTraining
	}
	r.st.IsTraining = false
	r.st.State = StateStopped
	r.st.ErrorMessage = message
	return r.st, nil
}

// Abort records a failure for a claimed run whose artifacts could not be
// prepared (the training process never started).
func (r *Registry) Abort(message string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.st.State == StateTraining {
		r.st.IsTraining = false
		r.st.State = StateFailed
		r.st.ErrorMessage = message
	}
	return r.st
}
