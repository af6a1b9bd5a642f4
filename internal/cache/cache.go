package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is a pure accelerator in front of availability and stock reads;
// correctness never depends on hit vs miss. Available lets callers fail
// over to an in-process map when the distributed cache is unreachable.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Available(ctx context.Context) bool
}
