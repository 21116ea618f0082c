package order

import (
	"fmt"
	"sync"
	"time"
)

// maxSequence is the largest per-millisecond suffix; the suffix is 4 digits.
const maxSequence = 9999

// NumberGenerator issues order numbers of the form yyyyMMddHHmmssSSS (UTC)
// followed by a 4-digit sequence that restarts every millisecond. Numbers from one
// generator never repeat, even when the wall clock steps backwards: the
// generator keeps its own high-water millisecond and borrows the next one
// when a millisecond's sequence is exhausted. Uniqueness across processes
// is left to the unique index on orders.number.
type NumberGenerator struct {
	mu     sync.Mutex
	now    func() time.Time
	lastMs int64
	seq    int
}

func NewNumberGenerator(now func() time.Time) *NumberGenerator {
	if now == nil {
		now = time.Now
	}
	return &NumberGenerator{now: now, lastMs: -1}
}

func (g *NumberGenerator) Next() string {
	t := g.now()

	g.mu.Lock()
	ms := t.UnixMilli()
	switch {
	case ms > g.lastMs:
		g.lastMs = ms
		g.seq = 0
	default:
		g.seq++
		if g.seq > maxSequence {
			g.lastMs++
			g.seq = 0
		}
	}
	ms, seq := g.lastMs, g.seq
	g.mu.Unlock()

	stamp := time.UnixMilli(ms).UTC()
	return fmt.Sprintf("%s%03d%04d", stamp.Format("20060102150405"), stamp.Nanosecond()/int(time.Millisecond), seq)
}
