package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/chsandbox/internal/compose"
	"github.com/lehigh-university-libraries/chsandbox/internal/render"
	"github.com/lehigh-university-libraries/chsandbox/internal/runner"
)

// Session is the state behind one sandbox page: editor text, filter
// inputs and the runner holding the last result. Presets, edits and
// executions all go through the same Session, so there is exactly one
// place a preset can land.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	query   string
	filters compose.Filters
	runner  *runner.Runner
}

// Snapshot is a point-in-time copy of a session
type Snapshot struct {
	ID       string          `json:"id"`
	Query    string          `json:"query"`
	Filters  compose.Filters `json:"filters"`
	Composed string          `json:"composed"`
	Endpoint string          `json:"endpoint"`
	State    runner.State    `json:"state"`
	View     render.View     `json:"view"`
}

// New creates a session with the default query
func New(id string, r *runner.Runner) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		query:     compose.DefaultQuery,
		runner:    r,
	}
}

// SetQuery replaces the editor text. The editor is read-only while a
// request is outstanding, so this is refused then.
func (s *Session) SetQuery(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner.Loading() {
		return false
	}
	s.query = text
	return true
}

// SetFilters replaces the filter inputs; refused while loading
func (s *Session) SetFilters(f compose.Filters) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner.Loading() {
		return false
	}
	s.filters = f
	return true
}

// ApplyPreset installs a preset query: filters are cleared and the previous
// result and error discarded. Refused while a request is outstanding.
func (s *Session) ApplyPreset(query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.runner.Reset() {
		return false
	}
	s.query = query
	s.filters = compose.Filters{}
	return true
}

// Clear restores the default query and empties filters and results
func (s *Session) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.runner.Reset() {
		return false
	}
	s.query = compose.DefaultQuery
	s.filters = compose.Filters{}
	return true
}

// Composed returns the query text an execute would submit now
func (s *Session) Composed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return compose.Compose(s.query, s.filters)
}

// Execute composes the current inputs and runs them. It returns false
// when a request is already in flight. The runner enters loading under
// the session lock, so no edit can land between composing and sending.
func (s *Session) Execute(ctx context.Context) bool {
	s.mu.Lock()
	if !s.runner.TryStart() {
		s.mu.Unlock()
		return false
	}
	query := compose.Compose(s.query, s.filters)
	s.mu.Unlock()

	s.runner.Run(ctx, query)
	return true
}

// Loading reports whether the session's runner has a request outstanding
func (s *Session) Loading() bool {
	return s.runner.Loading()
}

// Snapshot returns the session's current inputs, state and view
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	query, filters := s.query, s.filters
	s.mu.Unlock()

	state := s.runner.State()
	return Snapshot{
		ID:       s.ID,
		Query:    query,
		Filters:  filters,
		Composed: compose.Compose(query, filters),
		Endpoint: s.runner.Endpoint,
		State:    state,
		View:     render.Render(state),
	}
}
