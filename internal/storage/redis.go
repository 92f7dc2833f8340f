package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists values as plain Redis strings.
type RedisStore struct {
	client *redis.Client
	opts   Options
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, opts Options) *RedisStore {
	return &RedisStore{client: client, opts: opts}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.opts.scopedKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Store. A positive TTL in Options applies to every write.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.opts.checkQuota(key, value); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.opts.scopedKey(key), value, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("storage: redis set %s: %w", key, err)
	}
	return nil
}

// Remove implements Store.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.opts.scopedKey(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("storage: redis del %s: %w", key, err)
	}
	return nil
}
