package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/fincalc/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	store := newMemoryIdempotencyStore(time.Hour, clock.Now)
	defer store.Close()

	t.Run("first mark wins, second is a duplicate", func(t *testing.T) {
		first, err := store.MarkProcessed(ctx, "k1", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)

		second, err := store.MarkProcessed(ctx, "k1", time.Minute)
		require.NoError(t, err)
		assert.False(t, second)

		processed, err := store.IsProcessed(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "k2", time.Minute)
		require.NoError(t, err)
		clock.Advance(2 * time.Minute)

		processed, err := store.IsProcessed(ctx, "k2")
		require.NoError(t, err)
		assert.False(t, processed)

		again, err := store.MarkProcessed(ctx, "k2", time.Minute)
		require.NoError(t, err)
		assert.True(t, again)
	})

	t.Run("released key can be marked again", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "k3", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "k3"))

		again, err := store.MarkProcessed(ctx, "k3", time.Hour)
		require.NoError(t, err)
		assert.True(t, again)
	})

	t.Run("sweep drops expired keys", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "short", time.Second)
		require.NoError(t, err)
		before := store.Len()
		clock.Advance(2 * time.Hour)
		store.removeExpired()
		assert.Less(t, store.Len(), before)
		assert.Zero(t, store.Len())
	})
}

func TestMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	defer store.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkProcessed(context.Background(), "same", time.Minute)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestNewIdempotencyStore_FallsBackToMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("redis disabled", func(t *testing.T) {
		store := NewIdempotencyStore(ctx, config.RedisConfig{}, zap.NewNop())
		defer store.Close()
		assert.IsType(t, &MemoryIdempotencyStore{}, store)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		store := NewIdempotencyStore(ctx, config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}, zap.NewNop())
		defer store.Close()
		assert.IsType(t, &MemoryIdempotencyStore{}, store)
	})
}
