package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/pagination"
)

// fakeEventRepo records inserts and serves canned counts.
type fakeEventRepo struct {
	events    []secevent.Event
	count     int
	countErr  error
	insertErr error
}

func (r *fakeEventRepo) Insert(_ context.Context, event secevent.Event) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepo) CountRecent(context.Context, string, []secevent.Kind, time.Time) (int, error) {
	return r.count, r.countErr
}

func (r *fakeEventRepo) List(context.Context, EventFilter, pagination.Pagination) ([]secevent.Event, int64, error) {
	return r.events, int64(len(r.events)), nil
}

func newTestDetector(repo *fakeEventRepo, threshold int) *SuspicionDetector {
	events := NewSecurityEventService(repo, logger.NewNop())
	return NewSuspicionDetector(events, threshold, time.Hour, logger.NewNop())
}

func TestSuspiciousUserAgents(t *testing.T) {
	detector := newTestDetector(&fakeEventRepo{}, 10)
	ctx := context.Background()

	tests := []struct {
		name      string
		userAgent string
		want      bool
	}{
		{"curl-like bot", "Googlebot/2.1", true},
		{"crawler", "my-web-CRAWLER 1.0", true},
		{"spider", "Baiduspider", true},
		{"scanner", "nessus-scanner", true},
		{"scraper", "data Scraper v3", true},
		{"test agent", "integration-test-client", true},
		{"browser", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suspicious, heuristic := detector.IsSuspicious(ctx, "10.0.0.1", tt.userAgent)
			assert.Equal(t, tt.want, suspicious)
			if tt.want {
				assert.Equal(t, "user_agent", heuristic)
			}
		})
	}
}

func TestSuspicionFailureVolume(t *testing.T) {
	ctx := context.Background()
	browser := "Mozilla/5.0"

	t.Run("at threshold passes", func(t *testing.T) {
		detector := newTestDetector(&fakeEventRepo{count: 10}, 10)
		suspicious, _ := detector.IsSuspicious(ctx, "10.0.0.1", browser)
		assert.False(t, suspicious)
	})

	t.Run("over threshold rejects", func(t *testing.T) {
		detector := newTestDetector(&fakeEventRepo{count: 11}, 10)
		suspicious, heuristic := detector.IsSuspicious(ctx, "10.0.0.1", browser)
		assert.True(t, suspicious)
		assert.Equal(t, "failure_volume", heuristic)
	})

	t.Run("unreadable event log fails open", func(t *testing.T) {
		detector := newTestDetector(&fakeEventRepo{countErr: errors.New("db down")}, 10)
		suspicious, _ := detector.IsSuspicious(ctx, "10.0.0.1", browser)
		assert.False(t, suspicious)
	})
}

func TestFailureKinds(t *testing.T) {
	assert.ElementsMatch(t, []secevent.Kind{
		secevent.KindLoginFailed,
		secevent.KindInvalidToken,
		secevent.KindAccessDenied,
	}, secevent.FailureKinds)
}
