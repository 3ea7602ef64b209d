package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soori/internal/mfa/domain"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a challenge repository that uses the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists the challenge. The challenge must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO verification_challenges (id, phone, code_hash, attempts, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Phone, c.CodeHash, c.Attempts, c.ExpiresAt, c.CreatedAt)
	return err
}

// GetByID returns the challenge for id, or nil if not found. Expiry is checked by the caller.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	var c domain.Challenge
	err := r.pool.QueryRow(ctx,
		`SELECT id, phone, code_hash, attempts, expires_at, created_at
		 FROM verification_challenges WHERE id = $1`, id).
		Scan(&c.ID, &c.Phone, &c.CodeHash, &c.Attempts, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Update stores the attempt counter.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Challenge) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE verification_challenges SET attempts = $2 WHERE id = $1`, c.ID, c.Attempts)
	return err
}

// Delete removes the challenge by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM verification_challenges WHERE id = $1`, id)
	return err
}

// DeleteExpired removes challenges that expired before the database clock. Returns the number removed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM verification_challenges WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
