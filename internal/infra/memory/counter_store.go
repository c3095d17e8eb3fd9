// Package memory provides in-process implementations of the limiter
// and captcha stores. They are scoped to a single process; multi
// instance deployments use the redis implementations instead.
package memory

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int64
}

// CounterStore keeps fixed-window counters in a mutex-guarded map.
// Read-check-increment is atomic per call; a plain unguarded map here
// would be a correctness bug under concurrent requests.
type CounterStore struct {
	mu       sync.Mutex
	windows  map[string]*window
	now      func() time.Time
	sweep    time.Duration
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// CounterOption configures the CounterStore.
type CounterOption func(*CounterStore)

// WithCounterClock injects a clock, used by tests to control windows.
func WithCounterClock(now func() time.Time) CounterOption {
	return func(s *CounterStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCounterStore creates a counter store and starts its sweeper. The
// sweeper only bounds memory; expiry itself is lazy, decided per call.
func NewCounterStore(sweepInterval time.Duration, opts ...CounterOption) *CounterStore {
	s := &CounterStore{
		windows: make(map[string]*window),
		now:     time.Now,
		sweep:   sweepInterval,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.sweepStale()

	return s
}

// Stop stops the sweeper goroutine and waits for it to exit.
// Safe to call multiple times.
func (s *CounterStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
}

// Incr counts a request against the key's current window. A missing or
// elapsed window is replaced with a fresh one at count 1; the instant
// the window elapses belongs to the new window.
func (s *CounterStore) Incr(_ context.Context, key string, windowLength time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.start.Add(windowLength)) {
		s.windows[key] = &window{start: now, count: 1}
		return 1, nil
	}

	w.count++
	return w.count, nil
}

// maxWindow is the longest policy window; entries older than this are
// stale for every limiter class.
const maxWindow = time.Hour

func (s *CounterStore) sweepStale() {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()
	defer close(s.stopped)

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			for key, w := range s.windows {
				if now.Sub(w.start) > maxWindow {
					delete(s.windows, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
