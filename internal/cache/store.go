// Package cache provides the shared key/value store used for response caching.
package cache

import (
	"context"
	"time"
)

const (
	TypeRedis  = "redis"
	TypeMemory = "simple"
)

// Store is a TTL key/value store. Get reports a miss with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Type() string
	Close() error
}
