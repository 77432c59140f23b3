package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/chsandbox/internal/metrics"
	"github.com/lehigh-university-libraries/chsandbox/internal/sandbox"
)

type SessionStore struct {
	sessions map[string]*sandbox.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sandbox.Session),
	}
}

func (s *SessionStore) Get(sessionID string) (*sandbox.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *sandbox.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
	metrics.SessionsActive.Set(float64(len(s.sessions)))
}

// GetAll returns every session, oldest first
func (s *SessionStore) GetAll() []*sandbox.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*sandbox.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return exists
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
