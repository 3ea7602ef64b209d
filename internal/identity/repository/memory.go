package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"soori/internal/identity/domain"
)

// ErrDuplicateIdentity is returned by MemoryRepository.Create when the provider id is taken.
var ErrDuplicateIdentity = errors.New("identity already exists")

// MemoryRepository keeps identities in process memory.
type MemoryRepository struct {
	mu   sync.Mutex
	byID map[string]domain.Identity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]domain.Identity)}
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &i, nil
}

func (r *MemoryRepository) GetByProviderID(_ context.Context, provider domain.IdentityProvider, providerID string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.byID {
		if i.Provider == provider && i.ProviderID == providerID {
			return &i, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(_ context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.byID {
		if cur.Provider == i.Provider && cur.ProviderID == i.ProviderID {
			return ErrDuplicateIdentity
		}
	}
	r.byID[i.ID] = *i
	return nil
}

func (r *MemoryRepository) TouchVerified(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byID[id]; ok {
		i.LastVerifiedAt = at
		r.byID[id] = i
	}
	return nil
}
