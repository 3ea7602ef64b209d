package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soori/internal/db"
	"soori/internal/db/migrate"
	"soori/internal/identity/domain"
)

func TestPostgresRepository_Identity(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	require.NoError(t, migrate.Run(dsn, migrate.Up, nil))
	ctx := context.Background()
	pool, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	r := NewPostgresRepository(pool)
	phone := "+8210" + uuid.New().String()[:8]
	ident := testIdentity(uuid.New().String(), phone)
	require.NoError(t, r.Create(ctx, ident))

	got, err := r.GetByProviderID(ctx, domain.IdentityProviderPhone, phone)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ident.ID, got.ID)

	later := ident.LastVerifiedAt.Add(time.Hour)
	require.NoError(t, r.TouchVerified(ctx, ident.ID, later))
	got, err = r.GetByID(ctx, ident.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, later.Equal(got.LastVerifiedAt))

	missing, err := r.GetByID(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
