package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = errors.New("session entry not found or expired")

// Store holds the transient signup state: pending OTPs, verified markers and
// draft profiles. Every entry expires on its own; nothing here is durable.
type Store interface {
	// Set writes a value with the given TTL, overwriting any previous value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Delete removes the given keys. Absent keys are a no-op.
	Delete(ctx context.Context, keys ...string) error
	// SetNX writes the value only if the key does not exist and reports
	// whether the write happened. Used for resend cooldowns.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Incr atomically increments a counter, arming the TTL on first use so a
	// fresh window resets the count. Increment and expiry set must not race.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps a connected Redis client as a Store.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *redisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *redisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
