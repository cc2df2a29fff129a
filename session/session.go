// Package session tracks whether the operator is signed in, fetches the
// bearer token the transport attaches, and decides where a route request
// may go.
package session

import "sync"

// Status of an AuthSession.
type Status int

const (
	// StatusUnknown is the initial loading state, before the first token
	// lookup has answered.
	StatusUnknown Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "invalid"
	}
}

// AuthSession is the process-wide view of the sign-in state. The zero value
// is not usable; call New.
type AuthSession struct {
	mu        sync.Mutex
	status    Status
	nextID    uint64
	listeners map[uint64]func(Status)
}

func New() *AuthSession {
	return &AuthSession{listeners: make(map[uint64]func(Status))}
}

func (s *AuthSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Authenticated is shorthand for Status() == StatusAuthenticated.
func (s *AuthSession) Authenticated() bool { return s.Status() == StatusAuthenticated }

// Loading reports whether the session has not been resolved yet.
func (s *AuthSession) Loading() bool { return s.Status() == StatusUnknown }

// Resolve records the outcome of a session lookup.
func (s *AuthSession) Resolve(authenticated bool) {
	if authenticated {
		s.set(StatusAuthenticated)
		return
	}
	s.set(StatusUnauthenticated)
}

// Teardown marks the session signed out. Idempotent.
func (s *AuthSession) Teardown() { s.set(StatusUnauthenticated) }

// OnChange registers fn for status transitions. fn runs on the goroutine
// that caused the change, outside the session lock. The returned cancel is
// idempotent.
func (s *AuthSession) OnChange(fn func(Status)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *AuthSession) set(st Status) {
	s.mu.Lock()
	if s.status == st {
		s.mu.Unlock()
		return
	}
	s.status = st
	fns := make([]func(Status), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
