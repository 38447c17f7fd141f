package persistence

import (
	"sync"

	"github.com/talgya/warfront/internal/territory"
)

// Recorder buffers accepted update records between flushes. It subscribes
// to the territorial authority as an observer; the engine drains it on the
// persistence cadence.
type Recorder struct {
	mu      sync.Mutex
	pending []territory.Update
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// TerritoryUpdated buffers the update for the next flush.
func (r *Recorder) TerritoryUpdated(u territory.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, u)
}

// ControlChanged is part of territory.Observer; flips are already carried
// on the update records.
func (r *Recorder) ControlChanged(territory.ControlChange) {}

// ContestChanged is part of territory.Observer.
func (r *Recorder) ContestChanged(territory.ContestChange) {}

// Drain returns the buffered updates and resets the buffer.
func (r *Recorder) Drain() []territory.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}
