package repository

import (
	"context"

	"soori/internal/eventlog/domain"
)

// Repository defines persistence for diagnostic events.
type Repository interface {
	Save(ctx context.Context, e *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// ListRecent returns events newest first.
	ListRecent(ctx context.Context, limit, offset int32) ([]*domain.Event, error)
}
