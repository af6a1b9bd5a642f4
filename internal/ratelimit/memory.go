package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = time.Minute

type windowEntry struct {
	count    int64
	resetsAt time.Time
}

// MemoryCounterStore is the in-process fallback counter store. Expired
// windows are reclaimed by a periodic sweeper so abandoned caller keys
// do not accumulate.
type MemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*windowEntry

	stopSweep chan struct{}
	wg        sync.WaitGroup
}

func NewMemoryCounterStore() *MemoryCounterStore {
	s := &MemoryCounterStore{
		windows:   make(map[string]*windowEntry),
		stopSweep: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweepLoop()

	return s
}

func (s *MemoryCounterStore) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(time.Now())
		case <-s.stopSweep:
			return
		}
	}
}

// Sweep drops windows that have already reset.
func (s *MemoryCounterStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.windows {
		if now.After(entry.resetsAt) {
			delete(s.windows, key)
		}
	}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.windows[key]
	if !ok || now.After(entry.resetsAt) {
		s.windows[key] = &windowEntry{count: 1, resetsAt: now.Add(window)}
		return 1, window, nil
	}

	entry.count++
	return entry.count, entry.resetsAt.Sub(now), nil
}

// Close stops the background sweeper and waits for it to finish.
func (s *MemoryCounterStore) Close() error {
	close(s.stopSweep)
	s.wg.Wait()
	return nil
}
