package repository

import (
	"context"
	"time"

	"soori/internal/mfa/domain"
)

// Repository defines persistence for verification challenges.
// GetByID returns nil, nil when the challenge does not exist.
type Repository interface {
	Create(ctx context.Context, c *domain.Challenge) error
	GetByID(ctx context.Context, id string) (*domain.Challenge, error)
	// Update stores the attempt counter of an existing challenge. No-op if it is gone.
	Update(ctx context.Context, c *domain.Challenge) error
	Delete(ctx context.Context, id string) error
}

// DefaultChallengeTTL is how long a verification code stays valid.
const DefaultChallengeTTL = 300 * time.Second

// MaxAttempts is the number of wrong codes accepted before a challenge is burned.
const MaxAttempts = 5
