package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maegy2011/FMS-sub000/internal/app"
)

// ChallengeStore is the Redis implementation of the captcha session
// store. Sessions carry their own TTL so Redis evicts what the verify
// path never consumes.
type ChallengeStore struct {
	client *Client
	prefix string
}

// NewChallengeStore creates a Redis-backed challenge store.
func NewChallengeStore(client *Client) *ChallengeStore {
	return &ChallengeStore{
		client: client,
		prefix: "captcha:",
	}
}

// Save stores a challenge under its session id with a TTL slightly past
// its expiry. Expiry is still checked at verify time; the TTL only
// bounds storage.
func (s *ChallengeStore) Save(ctx context.Context, ch app.Challenge) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	ttl := time.Until(ch.ExpiresAt) + time.Minute
	if ttl <= 0 {
		ttl = time.Minute
	}

	if err := s.client.Client().Set(ctx, s.prefix+ch.SessionID, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis challenge save: %w", err)
	}
	return nil
}

// Take removes and returns the challenge. GETDEL makes the removal
// atomic, so two concurrent verify calls cannot both observe it.
func (s *ChallengeStore) Take(ctx context.Context, sessionID string) (app.Challenge, bool, error) {
	data, err := s.client.Client().GetDel(ctx, s.prefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return app.Challenge{}, false, nil
	}
	if err != nil {
		return app.Challenge{}, false, fmt.Errorf("redis challenge take: %w", err)
	}

	var ch app.Challenge
	if err := json.Unmarshal([]byte(data), &ch); err != nil {
		return app.Challenge{}, false, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	return ch, true, nil
}
