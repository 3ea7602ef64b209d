package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soori/internal/eventlog/domain"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns an event repository that uses the given pool for persistence.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save persists the event. The event must have ID and CreatedAt set.
func (r *PostgresRepository) Save(ctx context.Context, e *domain.Event) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO events (id, title, description, fatal, source, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Title, e.Description, e.Fatal, e.Source, e.CreatedAt)
	return err
}

// Emit saves the event so the repository can be used as an event sink.
func (r *PostgresRepository) Emit(ctx context.Context, e *domain.Event) error {
	if e == nil {
		return nil
	}
	return r.Save(ctx, e)
}

// GetByID returns the event for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var e domain.Event
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, fatal, source, created_at FROM events WHERE id = $1`, id).
		Scan(&e.ID, &e.Title, &e.Description, &e.Fatal, &e.Source, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// ListRecent returns events newest first, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit, offset int32) ([]*domain.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, fatal, source, created_at FROM events
		 ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Event, error) {
		var e domain.Event
		if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Fatal, &e.Source, &e.CreatedAt); err != nil {
			return nil, err
		}
		return &e, nil
	})
}
