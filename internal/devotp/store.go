// Package devotp keeps plain verification codes by challenge ID when dev OTP mode is enabled,
// so the sign-in terminal can show the code instead of sending an SMS.
package devotp

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store holds plain codes by challenge ID for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores code for challengeID until expiresAt.
	Put(ctx context.Context, challengeID, code string, expiresAt time.Time)
	// Get returns the code for challengeID if present and not expired. Returns ok false if missing or expired.
	Get(ctx context.Context, challengeID string) (code string, ok bool)
	// Delete forgets challengeID. Called once the code has been confirmed.
	Delete(ctx context.Context, challengeID string)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	m     map[string]entry
	clock clockwork.Clock
}

// NewMemoryStore returns a new in-memory dev OTP store. A nil clock uses the real clock.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		m:     make(map[string]entry),
		clock: clock,
	}
}

// Put stores code for challengeID until expiresAt.
func (s *MemoryStore) Put(_ context.Context, challengeID, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[challengeID] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for challengeID if present and not expired.
func (s *MemoryStore) Get(_ context.Context, challengeID string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[challengeID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.clock.Now()) {
		s.mu.Lock()
		delete(s.m, challengeID)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}

// Delete forgets challengeID.
func (s *MemoryStore) Delete(_ context.Context, challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, challengeID)
}
