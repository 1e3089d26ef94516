package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL bounds how long an authenticated marker stays valid.
const DefaultSessionTTL = 2 * time.Hour

type session struct {
	email   string
	expires time.Time
}

// Sessions holds authenticated-admin markers keyed by opaque token.
type Sessions struct {
	mu      sync.Mutex
	entries map[string]session
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		entries: make(map[string]session),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Issue creates a marker for a freshly authenticated admin and returns its
// token.
func (s *Sessions) Issue(email string) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = session{email: email, expires: s.nowFunc().Add(s.ttl)}
	return token
}

// Check resolves a token to the admin email it marks; expired markers are
// removed on sight.
func (s *Sessions) Check(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return "", false
	}
	if s.nowFunc().After(entry.expires) {
		delete(s.entries, token)
		return "", false
	}
	return entry.email, true
}

// Revoke removes the marker for a logged-out admin.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
}
