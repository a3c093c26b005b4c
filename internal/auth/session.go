package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kartikbazzad/bunbase/lookup/internal/metrics"
)

// DefaultSessionTTL is the session lifetime when none is configured.
const DefaultSessionTTL = 24 * time.Hour

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
)

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Session is a logged-in browser session.
type Session struct {
	Token     string
	User      Principal
	ExpiresAt time.Time
}

// SessionStore keeps sessions in memory; they do not survive a restart.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session
}

// NewSessionStore creates a store issuing sessions valid for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// TTL returns the session lifetime.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Create starts a session for p.
func (s *SessionStore) Create(p Principal) (Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return Session{}, err
	}
	sess := Session{Token: token, User: p, ExpiresAt: s.now().Add(s.ttl)}

	s.mu.Lock()
	s.sessions[token] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return sess, nil
}

// Validate returns the principal for token. Expired sessions are removed.
func (s *SessionStore) Validate(token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrInvalidSession
	}
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Principal{}, ErrInvalidSession
	}
	if s.now().After(sess.ExpiresAt) {
		s.Delete(token)
		return Principal{}, ErrSessionExpired
	}
	return sess.User, nil
}

// Delete ends a session.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
}

// CleanupExpired removes expired sessions and returns how many were removed.
func (s *SessionStore) CleanupExpired() int {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for token, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return removed
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
