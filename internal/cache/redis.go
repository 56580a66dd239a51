package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in Redis so every gateway process shares them.
type RedisStore struct {
	client *redisv9.Client
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redisv9.Client, error) {
	opts, err := redisv9.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redisv9.NewClient(opts), nil
}

func NewRedisStore(client *redisv9.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Type() string { return TypeRedis }

func (s *RedisStore) Close() error {
	return s.client.Close()
}
