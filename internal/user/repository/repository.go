package repository

import (
	"context"
	"errors"

	"soori/internal/user/domain"
)

var (
	// ErrUserExists is returned by Register when the identity already has a user.
	ErrUserExists = errors.New("user already exists")
	// ErrVehicleClaimed is returned by Register when the vehicle belongs to another user.
	ErrVehicleClaimed = errors.New("vehicle already registered to another user")
)

// Repository defines persistence for users and their vehicles.
// Lookups return nil, nil when nothing matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIdentityUID(ctx context.Context, identityUID string) (*domain.User, error)
	GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error)
	// Register stores u and attaches v to it atomically. v is created, or claimed if it exists without an owner.
	Register(ctx context.Context, u *domain.User, v *domain.Vehicle) error
}
