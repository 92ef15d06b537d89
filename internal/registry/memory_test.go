package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMemory(t *testing.T) (*Memory, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	m := NewMemory(WithClock(clk.Now), WithSweepInterval(0))
	t.Cleanup(func() { _ = m.Close() })
	return m, clk
}

func TestMemory_UnregisteredDoesNotExist(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	for _, id := range []string{"", "abc", "lqz3k1"} {
		ok, err := m.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}
}

func TestMemory_RegisterLiveUntilTTL(t *testing.T) {
	m, clk := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "r1"))

	clk.Advance(TTL - time.Second)
	ok, _ := m.Exists(ctx, "r1")
	assert.True(t, ok)

	clk.Advance(time.Second)
	ok, _ = m.Exists(ctx, "r1")
	assert.False(t, ok, "room must be gone exactly at TTL")
}

func TestMemory_DeregisterRemovesImmediately(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "r1"))
	require.NoError(t, m.Deregister(ctx, "r1"))

	ok, _ := m.Exists(ctx, "r1")
	assert.False(t, ok)

	// absent id is a no-op
	require.NoError(t, m.Deregister(ctx, "never"))
}

func TestMemory_RegisterRefreshesExpiry(t *testing.T) {
	m, clk := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "r1"))
	clk.Advance(time.Hour)
	require.NoError(t, m.Register(ctx, "r1"))

	clk.Advance(TTL - time.Minute)
	ok, _ := m.Exists(ctx, "r1")
	assert.True(t, ok, "second register restarts the clock")

	clk.Advance(time.Minute)
	ok, _ = m.Exists(ctx, "r1")
	assert.False(t, ok)
}

func TestMemory_StatsCountsHitsAndMisses(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "abc"))
	require.NoError(t, m.Register(ctx, "de"))

	for i := 0; i < 3; i++ {
		_, _ = m.Exists(ctx, "abc")
	}
	for i := 0; i < 2; i++ {
		_, _ = m.Exists(ctx, "missing")
	}

	s, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Keys: 2, Hits: 3, Misses: 2, KSize: 5, VSize: 2 * valueSize}, s)
}

func TestMemory_StatsSkipsExpired(t *testing.T) {
	m, clk := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "old"))
	clk.Advance(TTL)
	require.NoError(t, m.Register(ctx, "new"))

	s, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Keys)
	assert.Equal(t, int64(3), s.KSize)
}

func TestMemory_Sweep(t *testing.T) {
	m, clk := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "a"))
	require.NoError(t, m.Register(ctx, "b"))
	clk.Advance(TTL / 2)
	require.NoError(t, m.Register(ctx, "c"))
	clk.Advance(TTL / 2)

	assert.Equal(t, 2, m.sweep())

	m.mu.Lock()
	_, ok := m.expires["c"]
	m.mu.Unlock()
	assert.True(t, ok)
}

func TestMemory_BackgroundSweepStopsOnClose(t *testing.T) {
	m := NewMemory(WithSweepInterval(time.Millisecond))
	require.NoError(t, m.Close())
	// second close is fine
	require.NoError(t, m.Close())
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	const workers = 50
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("room-%d", w)
			for i := 0; i < perWorker; i++ {
				_ = m.Register(ctx, id)
				_, _ = m.Exists(ctx, id)
				_ = m.Deregister(ctx, id)
				_, _ = m.Exists(ctx, id)
			}
		}(w)
	}
	wg.Wait()

	s, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Keys)
	assert.Equal(t, int64(workers*perWorker), s.Hits)
	assert.Equal(t, int64(workers*perWorker), s.Misses)
}
