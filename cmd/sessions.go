package main

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/ai/llm/sessionx"
	"github.com/parleyhq/parley/pkg/errx"
)

var (
	storeRegistry = errx.NewRegistry("SESSION_STORE")

	ErrSessionNotFound = storeRegistry.Register(
		"SESSION_NOT_FOUND",
		errx.TypeNotFound,
		http.StatusNotFound,
		"Session not found",
	)
)

// sessionStore keeps live sessions in memory, keyed by UUID. Sessions are
// process-local; a restart drops them.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionx.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*sessionx.Session),
	}
}

func (s *sessionStore) Put(session *sessionx.Session) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return id
}

func (s *sessionStore) Get(id string) (*sessionx.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, storeRegistry.New(ErrSessionNotFound).
			WithDetail("session_id", id)
	}
	return session, nil
}

func (s *sessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return storeRegistry.New(ErrSessionNotFound).
			WithDetail("session_id", id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *sessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
