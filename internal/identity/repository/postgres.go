package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soori/internal/identity/domain"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns an identity repository that uses the given pool for persistence.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const identityColumns = `id, provider, provider_id, created_at, last_verified_at`

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByProviderID returns the identity for the provider and provider-specific id, or nil if not found.
func (r *PostgresRepository) GetByProviderID(ctx context.Context, provider domain.IdentityProvider, providerID string) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE provider = $1 AND provider_id = $2`,
		string(provider), providerID)
	return scanIdentity(row)
}

// Create persists the identity to the database. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		i.ID, string(i.Provider), i.ProviderID, i.CreatedAt, i.LastVerifiedAt)
	return err
}

// TouchVerified updates last_verified_at.
func (r *PostgresRepository) TouchVerified(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE identities SET last_verified_at = $2 WHERE id = $1`, id, at)
	return err
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		i        domain.Identity
		provider string
	)
	if err := row.Scan(&i.ID, &provider, &i.ProviderID, &i.CreatedAt, &i.LastVerifiedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Provider = domain.IdentityProvider(provider)
	return &i, nil
}
