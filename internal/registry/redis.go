package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis keeps rooms in redis so several relay instances see the same set.
// Hits and misses are counted per process.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string

	mu     sync.Mutex
	hits   int64
	misses int64
}

// NewRedis wraps an existing client. The caller owns the client and closes it.
func NewRedis(rdb redis.UniversalClient, opts ...Option) *Redis {
	o := buildOptions(opts)
	return &Redis{rdb: rdb, prefix: o.prefix}
}

func (r *Redis) Exists(ctx context.Context, roomID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(roomID)).Result()
	if err != nil {
		return false, fmt.Errorf("registry exists %q: %w", roomID, err)
	}
	found := n > 0

	r.mu.Lock()
	if found {
		r.hits++
	} else {
		r.misses++
	}
	r.mu.Unlock()

	observe(found)
	return found, nil
}

func (r *Redis) Register(ctx context.Context, roomID string) error {
	if err := r.rdb.Set(ctx, r.key(roomID), "1", TTL).Err(); err != nil {
		return fmt.Errorf("registry register %q: %w", roomID, err)
	}
	return nil
}

func (r *Redis) Deregister(ctx context.Context, roomID string) error {
	if err := r.rdb.Del(ctx, r.key(roomID)).Err(); err != nil {
		return fmt.Errorf("registry deregister %q: %w", roomID, err)
	}
	return nil
}

// Stats scans the room namespace to count live keys
func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		s.Keys++
		s.KSize += int64(len(strings.TrimPrefix(iter.Val(), r.prefix)))
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("registry stats: %w", err)
	}
	s.VSize = s.Keys * valueSize

	r.mu.Lock()
	s.Hits, s.Misses = r.hits, r.misses
	r.mu.Unlock()
	return s, nil
}

func (r *Redis) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }

func (r *Redis) Close() error { return nil }

func (r *Redis) key(roomID string) string { return r.prefix + roomID }
