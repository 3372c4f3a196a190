// Package storage defines the key-value contract the auction engine runs on.
// The store exposes only single-key atomic primitives; there are no multi-key
// transactions, and every component above this package is written to that
// boundary.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNil is returned by Get when the key is absent or its TTL has elapsed.
var ErrNil = errors.New("storage: key does not exist")

// Adapter is the full surface the engine uses. Incr must be atomic at the
// store layer; the rate limiter's correctness depends on it.
type Adapter interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)

	LPush(ctx context.Context, key string, values ...string) error
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	LLen(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
