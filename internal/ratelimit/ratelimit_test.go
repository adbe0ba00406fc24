package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitWindow(t *testing.T) {
	assert.Equal(t, 10*time.Second, Limit{RPS: 1, Burst: 10}.Window())
	assert.Equal(t, time.Second, Limit{RPS: 100, Burst: 1}.Window(), "window never drops below a second")
	assert.True(t, Limit{}.Disabled())
}

func TestMemoryStore_BurstThenDeny(t *testing.T) {
	store, err := NewMemoryStore(Limit{RPS: 0.001, Burst: 3}, 0)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := store.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, err := store.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok, "fourth request should be denied")

	// Another key has its own bucket.
	ok, err = store.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Reset(ctx))
	ok, err = store.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "reset should refill the bucket")
}

func TestMemoryStore_Disabled(t *testing.T) {
	store, err := NewMemoryStore(Limit{}, 10)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		ok, err := store.Allow(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
}

// TestRedisStore runs against a real server when REDIS_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()

	store, err := NewRedisStore(ctx, url, Limit{RPS: 0.01, Burst: 2})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Reset(ctx))

	for i := 0; i < 2; i++ {
		ok, err := store.Allow(ctx, "test-key")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := store.Allow(ctx, "test-key")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Reset(ctx))
}
