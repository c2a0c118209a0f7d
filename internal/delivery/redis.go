package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "cleaner:delivery:"

// RedisStore shares delivery IDs across replicas. SET NX gives the
// atomic insert; the key TTL is the retention window.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore wraps a redis client. An empty prefix uses the default.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreFromURL connects to redis and verifies the connection
func NewRedisStoreFromURL(ctx context.Context, url string) (*RedisStore, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client, ""), client, nil
}

// Insert sets the delivery key if absent
func (s *RedisStore) Insert(ctx context.Context, rec Record, ttl time.Duration) (bool, error) {
	value := rec.EventType + "@" + rec.ReceivedAt.UTC().Format(time.RFC3339)
	ok, err := s.client.SetNX(ctx, s.key(rec.DeliveryID), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) key(deliveryID string) string {
	return s.prefix + deliveryID
}
