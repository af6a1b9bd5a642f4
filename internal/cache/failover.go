package cache

import (
	"context"
	"errors"
	"log"
	"time"
)

// Failover reads through the distributed cache and falls through to the
// in-process cache on miss or error. Writes go to both so a redis outage
// still has warm local entries and entries written during one stay
// readable after it recovers; deletes go to both so a recovered redis
// never revives stale data.
type Failover struct {
	primary  Cache
	fallback Cache
}

func NewFailover(primary, fallback Cache) *Failover {
	return &Failover{primary: primary, fallback: fallback}
}

func (f *Failover) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := f.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Printf("primary cache get failed, using fallback: %v", err)
	}
	// A primary miss can still be a local hit: entries written while the
	// primary was down live only in the in-process cache.
	return f.fallback.Get(ctx, key)
}

func (f *Failover) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := f.fallback.Set(ctx, key, value, ttl); err != nil {
		log.Printf("fallback cache set failed: %v", err)
	}
	if err := f.primary.Set(ctx, key, value, ttl); err != nil {
		log.Printf("primary cache set failed: %v", err)
	}
	return nil
}

func (f *Failover) Delete(ctx context.Context, key string) error {
	if err := f.fallback.Delete(ctx, key); err != nil {
		log.Printf("fallback cache delete failed: %v", err)
	}
	if err := f.primary.Delete(ctx, key); err != nil {
		return err
	}
	return nil
}

func (f *Failover) DeletePrefix(ctx context.Context, prefix string) error {
	if err := f.fallback.DeletePrefix(ctx, prefix); err != nil {
		log.Printf("fallback cache prefix delete failed: %v", err)
	}
	if err := f.primary.DeletePrefix(ctx, prefix); err != nil {
		return err
	}
	return nil
}

func (f *Failover) Available(ctx context.Context) bool {
	return f.primary.Available(ctx) || f.fallback.Available(ctx)
}
