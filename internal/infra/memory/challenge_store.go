package memory

import (
	"context"
	"sync"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/app"
)

// ChallengeStore keeps captcha sessions in a mutex-guarded map.
type ChallengeStore struct {
	mu       sync.Mutex
	sessions map[string]app.Challenge
	now      func() time.Time
	sweep    time.Duration
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// ChallengeOption configures the ChallengeStore.
type ChallengeOption func(*ChallengeStore)

// WithChallengeClock injects a clock, used by tests.
func WithChallengeClock(now func() time.Time) ChallengeOption {
	return func(s *ChallengeStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewChallengeStore creates a challenge store and starts its sweeper.
func NewChallengeStore(sweepInterval time.Duration, opts ...ChallengeOption) *ChallengeStore {
	s := &ChallengeStore{
		sessions: make(map[string]app.Challenge),
		now:      time.Now,
		sweep:    sweepInterval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.sweepExpired()

	return s
}

// Stop stops the sweeper goroutine and waits for it to exit.
// Safe to call multiple times.
func (s *ChallengeStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
}

// Save stores a challenge under its session id.
func (s *ChallengeStore) Save(_ context.Context, ch app.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ch.SessionID] = ch
	return nil
}

// Take removes and returns the challenge. Removal happens under the
// same lock as the lookup, so two concurrent verify calls cannot both
// observe the session.
func (s *ChallengeStore) Take(_ context.Context, sessionID string) (app.Challenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.sessions[sessionID]
	if !ok {
		return app.Challenge{}, false, nil
	}
	delete(s.sessions, sessionID)
	return ch, true, nil
}

func (s *ChallengeStore) sweepExpired() {
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
			for id, ch := range s.sessions {
				if now.After(ch.ExpiresAt) {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
