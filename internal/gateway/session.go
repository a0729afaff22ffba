package gateway

import (
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionReleased is returned when a released session is used.
var ErrSessionReleased = errors.New("gateway session released")

// Session caches authenticated HTTP clients for the lifetime of one run.
// It is safe for concurrent use.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	clients  map[clientKey]*clientEntry
	released bool
}

type clientKey struct {
	provider string
	owner    uuid.UUID
}

// clientEntry is a client being built or already built. done is closed once
// client and err are set.
type clientEntry struct {
	done   chan struct{}
	client *http.Client
	err    error
}

// Acquire starts a new session.
func Acquire() *Session {
	return &Session{
		ID:      uuid.New(),
		clients: make(map[clientKey]*clientEntry),
	}
}

// Release drops every cached client. Further calls through the session fail
// with ErrSessionReleased. Release is idempotent.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.clients {
		select {
		case <-e.done:
			if e.client != nil {
				e.client.CloseIdleConnections()
			}
		default:
		}
	}
	s.clients = nil
	s.released = true
}

// client returns the cached client for key, building it with build on a miss.
// build runs without the session lock, so owners do not wait on each other;
// concurrent callers for the same key share one build. A failed build is not
// cached.
func (s *Session) client(key clientKey, build func() (*http.Client, error)) (*http.Client, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil, ErrSessionReleased
	}
	e, ok := s.clients[key]
	if !ok {
		e = &clientEntry{done: make(chan struct{})}
		s.clients[key] = e
	}
	s.mu.Unlock()

	if ok {
		<-e.done
		return e.client, e.err
	}

	e.client, e.err = build()
	close(e.done)
	if e.err != nil {
		s.evict(key, e)
	}
	return e.client, e.err
}

// forget evicts a client, e.g. after the provider rejected its token.
func (s *Session) forget(key clientKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, key)
}

func (s *Session) evict(key clientKey, e *clientEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[key] == e {
		delete(s.clients, key)
	}
}
