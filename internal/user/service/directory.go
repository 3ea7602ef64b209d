// Package service implements the user directory: lookup by identity, registration and role queries.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"soori/internal/user/domain"
	"soori/internal/user/repository"
)

var (
	ErrUserExists     = repository.ErrUserExists
	ErrVehicleClaimed = repository.ErrVehicleClaimed
	ErrUserNotFound   = errors.New("user not found")
	ErrNoIdentity     = errors.New("identity is required")
)

// UserRepo is the minimal user persistence used by Directory.
type UserRepo interface {
	GetByIdentityUID(ctx context.Context, identityUID string) (*domain.User, error)
	Register(ctx context.Context, u *domain.User, v *domain.Vehicle) error
}

// Directory answers who is registered and registers new users with their vehicle.
type Directory struct {
	users  UserRepo
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewDirectory returns a Directory. A nil clock uses the real clock and a nil logger discards output.
func NewDirectory(users UserRepo, clock clockwork.Clock, logger *zap.Logger) *Directory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{users: users, clock: clock, logger: logger}
}

// Lookup returns the user registered for identityUID, or nil when there is none.
func (d *Directory) Lookup(ctx context.Context, identityUID string) (*domain.User, error) {
	if identityUID == "" {
		return nil, ErrNoIdentity
	}
	return d.users.GetByIdentityUID(ctx, identityUID)
}

// Register validates profile and stores a user with role user plus the vehicle it names.
// Returns ErrUserExists when identityUID is already registered and ErrVehicleClaimed when another
// user owns the vehicle.
func (d *Directory) Register(ctx context.Context, identityUID, phoneNumber string, profile *domain.Profile) (*domain.User, error) {
	if identityUID == "" {
		return nil, ErrNoIdentity
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	existing, err := d.users.GetByIdentityUID(ctx, identityUID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	now := d.clock.Now().UTC()
	u := &domain.User{
		ID:                uuid.New().String(),
		IdentityUID:       identityUID,
		PhoneNumber:       phoneNumber,
		Role:              domain.RoleUser,
		Name:              profile.Name,
		RecipientType:     profile.RecipientType,
		SupportedDistrict: profile.SupportedDistrict,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	v := &domain.Vehicle{
		ID:             profile.VehicleID,
		UserID:         u.ID,
		Model:          profile.Model,
		PurchasedAt:    dateOnly(profile.PurchasedAt),
		ManufacturedAt: dateOnly(profile.ManufacturedAt),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := d.users.Register(ctx, u, v); err != nil {
		return nil, err
	}
	d.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("vehicle_id", v.ID))
	return u, nil
}

// Role returns the role of the user registered for identityUID.
func (d *Directory) Role(ctx context.Context, identityUID string) (domain.Role, error) {
	u, err := d.Lookup(ctx, identityUID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	return u.Role, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
