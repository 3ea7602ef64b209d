package repository

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"soori/internal/mfa/domain"
)

// MemoryRepository keeps challenges in process memory. Expired entries are dropped on access.
type MemoryRepository struct {
	mu    sync.Mutex
	clock clockwork.Clock
	byID  map[string]domain.Challenge
}

// NewMemoryRepository returns an empty in-memory repository. A nil clock uses the real clock.
func NewMemoryRepository(clock clockwork.Clock) *MemoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryRepository{clock: clock, byID: make(map[string]domain.Challenge)}
}

func (r *MemoryRepository) Create(_ context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = *c
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	if c.Expired(r.clock.Now()) {
		delete(r.byID, id)
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryRepository) Update(_ context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[c.ID]
	if !ok {
		return nil
	}
	cur.Attempts = c.Attempts
	r.byID[c.ID] = cur
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

// Len returns the number of stored challenges, expired ones included.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
