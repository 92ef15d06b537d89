package registry

import (
	"context"
	"sync"
	"time"
)

// Memory keeps rooms in process memory. Everything is lost on restart.
type Memory struct {
	mu      sync.Mutex
	expires map[string]time.Time // room id -> expiry
	hits    int64
	misses  int64

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewMemory creates an empty registry and starts its sweeper
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	m := &Memory{
		expires: map[string]time.Time{},
		now:     o.now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if o.sweepEvery > 0 {
		go m.sweepLoop(o.sweepEvery)
	} else {
		close(m.done)
	}
	return m
}

func (m *Memory) Exists(_ context.Context, roomID string) (bool, error) {
	m.mu.Lock()
	found := m.liveLocked(roomID, m.now())
	if found {
		m.hits++
	} else {
		m.misses++
	}
	m.mu.Unlock()

	observe(found)
	return found, nil
}

func (m *Memory) Register(_ context.Context, roomID string) error {
	m.mu.Lock()
	m.expires[roomID] = m.now().Add(TTL)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Deregister(_ context.Context, roomID string) error {
	m.mu.Lock()
	delete(m.expires, roomID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeLocked(m.now())
	s := Stats{Hits: m.hits, Misses: m.misses}
	for id := range m.expires {
		s.Keys++
		s.KSize += int64(len(id))
	}
	s.VSize = s.Keys * valueSize
	return s, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Close stops the sweeper and waits for it to exit
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	<-m.done
	return nil
}

// liveLocked reports whether roomID is unexpired, dropping it if not
func (m *Memory) liveLocked(roomID string, now time.Time) bool {
	exp, ok := m.expires[roomID]
	if !ok {
		return false
	}
	if !now.Before(exp) {
		delete(m.expires, roomID)
		return false
	}
	return true
}

func (m *Memory) purgeLocked(now time.Time) int {
	n := 0
	for id, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, id)
			n++
		}
	}
	return n
}

func (m *Memory) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeLocked(m.now())
}

func (m *Memory) sweepLoop(every time.Duration) {
	defer close(m.done)
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}
