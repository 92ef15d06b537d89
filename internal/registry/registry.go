// Package registry tracks which room ids are live.
//
// A room stays live for TTL after its last Register call, or until it is
// deregistered, whichever comes first. Lookups are counted as hits or misses
// so the HTTP side can report cache statistics.
package registry

import (
	"context"
	"time"

	"color-relay/pkg/metrics"
)

// TTL is how long a registered room stays live without being registered again.
const TTL = 7200 * time.Second

// valueSize is what each live flag contributes to Stats.VSize.
const valueSize = 4

// Stats is the flat statistics object served on /cache-stats.
type Stats struct {
	Keys   int64 `json:"keys"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	KSize  int64 `json:"ksize"`
	VSize  int64 `json:"vsize"`
}

// Registry is the set of live room ids. Implementations are safe for
// concurrent use.
type Registry interface {
	Exists(ctx context.Context, roomID string) (bool, error)
	Register(ctx context.Context, roomID string) error
	Deregister(ctx context.Context, roomID string) error
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

type options struct {
	now        func() time.Time
	sweepEvery time.Duration
	prefix     string
}

// Option tweaks a backend at construction time.
type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSweepInterval sets how often the memory backend purges expired rooms.
// Zero disables the background sweep; expired rooms are still dropped on lookup.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepEvery = d }
}

// WithPrefix sets the redis key namespace.
func WithPrefix(p string) Option {
	return func(o *options) { o.prefix = p }
}

func buildOptions(opts []Option) options {
	o := options{
		now:        time.Now,
		sweepEvery: 600 * time.Second,
		prefix:     "room:",
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// observe records a lookup result in prometheus
func observe(found bool) {
	if found {
		metrics.RegistryLookups.WithLabelValues("hit").Inc()
		return
	}
	metrics.RegistryLookups.WithLabelValues("miss").Inc()
}
