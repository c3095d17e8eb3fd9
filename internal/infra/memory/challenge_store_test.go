package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maegy2011/FMS-sub000/internal/app"
)

func TestChallengeStoreSaveAndTake(t *testing.T) {
	store := NewChallengeStore(time.Minute)
	defer store.Stop()

	ctx := context.Background()
	ch := app.Challenge{
		SessionID:    "sess-1",
		Question:     "2 + 3 = ?",
		AnswerSalt:   "salt",
		AnswerDigest: "digest",
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, store.Save(ctx, ch))

	got, ok, err := store.Take(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ch, got)

	// Take removed the session.
	_, ok, err = store.Take(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChallengeStoreTakeUnknown(t *testing.T) {
	store := NewChallengeStore(time.Minute)
	defer store.Stop()

	_, ok, err := store.Take(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChallengeStoreTakeIsExclusive(t *testing.T) {
	store := NewChallengeStore(time.Minute)
	defer store.Stop()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, app.Challenge{
		SessionID: "sess-1",
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	const attempts = 20
	var won atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.Take(ctx, "sess-1")
			assert.NoError(t, err)
			if ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load(), "exactly one taker may observe the session")
}
