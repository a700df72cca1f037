package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"ordergen/internal/pipeline"
)

// Run lifecycle states.
const (
	StatusAwaitingConfirmation = "awaiting_confirmation"
	StatusMerging              = "merging"
	StatusCompleted            = "completed"
	StatusFailed               = "failed"
	StatusStopped              = "stopped"
)

// RunState is the server-side record of one report run.
type RunState struct {
	ID        string
	Status    string
	CreatedAt time.Time
	RuleSet   string
	Run       *pipeline.Run
	Error     string

	cancel context.CancelFunc
}

// RunStore holds active and finished runs in memory, keyed by run ID.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunState
}

// NewRunStore creates an empty store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*RunState)}
}

// Put registers a run.
func (s *RunStore) Put(state *RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[state.ID] = state
}

// Get returns the run with the given ID.
func (s *RunStore) Get(id string) (*RunState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[id]
	return state, ok
}

// Update applies fn to the run under the store lock.
func (s *RunStore) Update(id string, fn func(*RunState)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.runs[id]
	if !ok {
		return false
	}
	fn(state)
	return true
}

// List returns all runs, newest first.
func (s *RunStore) List() []*RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*RunState, 0, len(s.runs))
	for _, state := range s.runs {
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
