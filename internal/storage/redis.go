package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/you/trisonapp/domain"
)

// RedisStore implements domain.TokenStore on Redis. Keys are prefixed
// so the auth subsystem owns its own namespace; no TTL is applied,
// logout is the only thing that removes credentials.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "trisonauth:",
	}
}

// Get implements domain.TokenStore
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrKeyNotFound
		}
		return "", &domain.StorageError{Op: "read", Err: err}
	}
	return v, nil
}

// Set implements domain.TokenStore
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return &domain.StorageError{Op: "write", Err: err}
	}
	return nil
}

// SetMulti implements domain.TokenStore
func (s *RedisStore) SetMulti(ctx context.Context, pairs map[string]string) error {
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range pairs {
			pipe.Set(ctx, s.prefix+k, v, 0)
		}
		return nil
	})
	if err != nil {
		return &domain.StorageError{Op: "write", Err: err}
	}
	return nil
}

// Delete implements domain.TokenStore
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return &domain.StorageError{Op: "delete", Err: err}
	}
	return nil
}

// Close implements domain.TokenStore
func (s *RedisStore) Close() error { return s.client.Close() }

var _ domain.TokenStore = (*RedisStore)(nil)
