package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidyops/fieldwork/internal/core"
)

// RedisCacheRepo backs CacheRepository with Redis, for deployments where
// automation guards and cached lookups must be shared across processes.
type RedisCacheRepo struct {
	client redis.UniversalClient
}

var _ core.CacheRepository = (*RedisCacheRepo)(nil)

// NewRedisCacheRepo creates a new RedisCacheRepo over the given client.
func NewRedisCacheRepo(client redis.UniversalClient) *RedisCacheRepo {
	return &RedisCacheRepo{client: client}
}

// Get returns the value for key, or (nil, nil) when the key is absent.
func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return []byte(result), nil
}

// Set stores the value under key with the given TTL.
func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// SetIfAbsent stores the value only when the key does not exist, reporting
// whether this call won. Backed by SET NX, so concurrent callers across
// processes race safely.
func (r *RedisCacheRepo) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	won, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return won, nil
}

// Delete removes key, reporting whether it existed.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return deleted > 0, nil
}
