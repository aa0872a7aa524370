package persist

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/pkg/redis"
)

type redisKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	StorageKey(namespace, name string) string
	Close() error
}

// RedisStore keeps session keys in Redis under a per-namespace prefix, so
// several kiosks can share one server.
type RedisStore struct {
	client    redisKV
	namespace string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	return newRedisStore(client, namespace, ttl)
}

func newRedisStore(client redisKV, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.client.StorageKey(s.namespace, key))
	if errors.Is(err, redis.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.client.StorageKey(s.namespace, key), value, s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.client.StorageKey(s.namespace, k))
	}
	return s.client.Del(ctx, full...)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
