package ratelimit

import (
	"context"
	"log"
	"time"
)

// CounterStore is a fixed-window hit counter. Incr bumps the counter for
// key, starting a fresh window if none is live, and returns the count
// within the current window plus the time left until it resets.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter throttles per caller key. A counter-backend failure lets the
// request through: blocking legitimate shoppers because redis hiccuped
// is worse than briefly losing the throttle.
type Limiter struct {
	store       CounterStore
	maxAttempts int64
	window      time.Duration
}

func NewLimiter(store CounterStore, maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{
		store:       store,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

// Allow reports whether the caller may proceed, and if not, how long
// until the current window resets.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	count, remaining, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		log.Printf("rate limit backend error, failing open: %v", err)
		return true, 0
	}
	if count > l.maxAttempts {
		if remaining <= 0 {
			remaining = l.window
		}
		return false, remaining
	}
	return true, 0
}
