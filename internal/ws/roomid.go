package ws

import (
	"strconv"
	"sync"
	"time"
)

// IDGen hands out room ids: the unix millisecond clock in base 36.
// Ids never repeat within one process; if the clock has not moved past the
// last id the next one is last+1.
type IDGen struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGen() *IDGen { return &IDGen{now: time.Now} }

func (g *IDGen) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 36)
}
