package repository

import (
	"context"
	"time"

	"soori/internal/identity/domain"
)

// Repository defines persistence for identities.
// Lookups return nil, nil when nothing matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByProviderID(ctx context.Context, provider domain.IdentityProvider, providerID string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	// TouchVerified records a successful verification at the given time.
	TouchVerified(ctx context.Context, id string, at time.Time) error
}
