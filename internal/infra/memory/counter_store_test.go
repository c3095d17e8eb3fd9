package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterStoreIncr(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewCounterStore(time.Minute, WithCounterClock(func() time.Time { return now }))
	defer store.Stop()

	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		count, err := store.Incr(ctx, "login:10.0.0.1", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	// Separate keys count independently.
	count, err := store.Incr(ctx, "login:10.0.0.2", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCounterStoreWindowBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewCounterStore(time.Minute, WithCounterClock(func() time.Time { return now }))
	defer store.Stop()

	ctx := context.Background()

	_, err := store.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)

	// Just inside the window: counter keeps growing.
	now = now.Add(time.Minute - time.Nanosecond)
	count, err := store.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// The boundary instant belongs to the new window.
	now = now.Add(time.Nanosecond)
	count, err = store.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCounterStoreConcurrentIncr(t *testing.T) {
	store := NewCounterStore(time.Minute)
	defer store.Stop()

	ctx := context.Background()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Incr(ctx, "shared", time.Hour)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := store.Incr(ctx, "shared", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(workers+1), count, "no increments may be lost under concurrency")
}

func TestCounterStoreStopIsIdempotent(t *testing.T) {
	store := NewCounterStore(time.Minute)
	store.Stop()
	store.Stop()
}
