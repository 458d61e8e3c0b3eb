package providers

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key does not exist
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider stores short-lived derived values such as tab counts.
// Values are opaque bytes; callers own the encoding.
type CacheProvider interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttlSeconds. Zero keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error

	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching a glob such as "tabcounts:*"
	DeletePattern(ctx context.Context, pattern string) error

	Exists(ctx context.Context, key string) (bool, error)
}
