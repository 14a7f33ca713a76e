package api

import (
	"sync"
	"time"
)

// Session is the process-wide authentication state. Only Client mutates it;
// everything else reads.
//
// Every request takes a ticket from Begin before it is sent. Observations
// carrying a ticket older than the newest applied one are stale and ignored,
// so a late 401 cannot undo a newer success and vice versa.
type Session struct {
	mu            sync.Mutex
	authenticated bool
	lastRefresh   time.Time
	issued        uint64
	applied       uint64
	expired       bool
	onExpired     func()
	now           func() time.Time
}

// NewSession creates an unauthenticated session. onExpired, if non-nil, runs
// once per expiry (the first fresh 401 after a success or a Reset).
func NewSession(onExpired func()) *Session {
	return &Session{onExpired: onExpired, now: time.Now}
}

// SetOnExpired replaces the expiry hook.
func (s *Session) SetOnExpired(fn func()) {
	s.mu.Lock()
	s.onExpired = fn
	s.mu.Unlock()
}

// Authenticated reports whether the newest observed response was a success.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// LastRefresh returns the time of the newest successful response.
func (s *Session) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

// Expired reports whether an expiry has been signalled and not yet cleared.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// Begin issues a ticket for a request about to be sent.
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// ObserveSuccess records a 2xx response for ticket.
func (s *Session) ObserveSuccess(ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.applied {
		return
	}
	s.applied = ticket
	s.authenticated = true
	s.expired = false
	s.lastRefresh = s.now()
}

// ObserveUnauthorized records a 401 for ticket. It returns true when this
// observation triggered the expiry hook.
func (s *Session) ObserveUnauthorized(ticket uint64) bool {
	s.mu.Lock()
	if ticket < s.applied {
		s.mu.Unlock()
		return false
	}
	s.applied = ticket
	s.authenticated = false
	if s.expired {
		s.mu.Unlock()
		return false
	}
	s.expired = true
	hook := s.onExpired
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return true
}

// Reset clears the expiry latch after the user re-authenticates, so the next
// fresh 401 signals again.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = false
	s.applied = s.issued
}
