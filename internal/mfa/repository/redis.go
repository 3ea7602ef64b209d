package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"soori/internal/mfa/domain"
)

const redisKeyPrefix = "soori:challenge:"

// RedisRepository stores challenges as JSON with a native TTL matching ExpiresAt.
type RedisRepository struct {
	rdb   *redis.Client
	clock clockwork.Clock
}

// NewRedisRepository returns a challenge repository backed by rdb. A nil clock uses the real clock.
func NewRedisRepository(rdb *redis.Client, clock clockwork.Clock) *RedisRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisRepository{rdb: rdb, clock: clock}
}

type redisChallenge struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *RedisRepository) Create(ctx context.Context, c *domain.Challenge) error {
	return r.put(ctx, c)
}

func (r *RedisRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	b, err := r.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rc redisChallenge
	if err := json.Unmarshal(b, &rc); err != nil {
		return nil, err
	}
	return &domain.Challenge{
		ID: rc.ID, Phone: rc.Phone, CodeHash: rc.CodeHash, Attempts: rc.Attempts,
		ExpiresAt: rc.ExpiresAt, CreatedAt: rc.CreatedAt,
	}, nil
}

// Update rewrites the challenge keeping its remaining TTL.
func (r *RedisRepository) Update(ctx context.Context, c *domain.Challenge) error {
	b, err := marshalChallenge(c)
	if err != nil {
		return err
	}
	err = r.rdb.SetArgs(ctx, redisKeyPrefix+c.ID, b, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, redisKeyPrefix+id).Err()
}

func (r *RedisRepository) put(ctx context.Context, c *domain.Challenge) error {
	ttl := c.ExpiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}
	b, err := marshalChallenge(c)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisKeyPrefix+c.ID, b, ttl).Err()
}

func marshalChallenge(c *domain.Challenge) ([]byte, error) {
	return json.Marshal(redisChallenge{
		ID: c.ID, Phone: c.Phone, CodeHash: c.CodeHash, Attempts: c.Attempts,
		ExpiresAt: c.ExpiresAt, CreatedAt: c.CreatedAt,
	})
}
