package repository

import (
	"context"
	"sync"

	"soori/internal/user/domain"
)

// MemoryRepository keeps users and vehicles in process memory.
type MemoryRepository struct {
	mu       sync.Mutex
	users    map[string]domain.User
	vehicles map[string]domain.Vehicle
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]domain.User),
		vehicles: make(map[string]domain.Vehicle),
	}
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryRepository) GetByIdentityUID(_ context.Context, identityUID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.IdentityUID == identityUID {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetVehicle(_ context.Context, id string) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *MemoryRepository) Register(_ context.Context, u *domain.User, v *domain.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.users {
		if cur.IdentityUID == u.IdentityUID {
			return ErrUserExists
		}
	}
	vehicle := *v
	vehicle.UserID = u.ID
	if prev, ok := r.vehicles[v.ID]; ok {
		if prev.UserID != "" && prev.UserID != u.ID {
			return ErrVehicleClaimed
		}
		vehicle.CreatedAt = prev.CreatedAt
	}
	r.users[u.ID] = *u
	r.vehicles[v.ID] = vehicle
	return nil
}
