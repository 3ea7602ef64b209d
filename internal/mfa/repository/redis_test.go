package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis connection failed (expected in test environment): %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisRepository_Lifecycle(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	clock := clockwork.NewRealClock()
	repo := NewRedisRepository(rdb, clock)

	id := uuid.NewString()
	require.NoError(t, repo.Create(ctx, newChallenge(clock, id)))

	ttl, err := rdb.TTL(ctx, redisKeyPrefix+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl.Seconds(), 0.0)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	got.Attempts = 2
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)

	require.NoError(t, repo.Delete(ctx, id))
	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	gone := newChallenge(clock, uuid.NewString())
	require.NoError(t, repo.Update(ctx, gone))
	got, err = repo.GetByID(ctx, gone.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
