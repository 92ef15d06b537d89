package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb), mr
}

func TestRedis_RegisterExistsDeregister(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	ok, err := r.Exists(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Register(ctx, "r1"))
	assert.True(t, mr.Exists("room:r1"))
	assert.Equal(t, TTL, mr.TTL("room:r1"))

	ok, err = r.Exists(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.Deregister(ctx, "r1"))
	ok, err = r.Exists(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_ExpiresAfterTTL(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "r1"))
	mr.FastForward(TTL - time.Second)
	ok, _ := r.Exists(ctx, "r1")
	assert.True(t, ok)

	// re-register refreshes
	require.NoError(t, r.Register(ctx, "r1"))
	mr.FastForward(TTL - time.Second)
	ok, _ = r.Exists(ctx, "r1")
	assert.True(t, ok)

	mr.FastForward(time.Second)
	ok, _ = r.Exists(ctx, "r1")
	assert.False(t, ok)
}

func TestRedis_Stats(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "abc"))
	require.NoError(t, r.Register(ctx, "de"))
	// keys outside the namespace are ignored
	require.NoError(t, mr.Set("color:abc", "x"))

	_, _ = r.Exists(ctx, "abc")
	_, _ = r.Exists(ctx, "zzz")
	_, _ = r.Exists(ctx, "zzz")

	s, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Keys: 2, Hits: 1, Misses: 2, KSize: 5, VSize: 2 * valueSize}, s)
}

func TestRedis_ErrorsAreWrapped(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	mr.SetError("boom")

	_, err := r.Exists(ctx, "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry exists")

	err = r.Register(ctx, "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry register")

	mr.SetError("")
	s, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.Hits+s.Misses, "failed lookups are not counted")
}

func TestRedis_Ping(t *testing.T) {
	r, mr := newTestRedis(t)
	require.NoError(t, r.Ping(context.Background()))
	mr.SetError("LOADING")
	assert.Error(t, r.Ping(context.Background()))
}
