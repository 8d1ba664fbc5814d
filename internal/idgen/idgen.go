// Package idgen mints 64-bit, time-ordered identifiers for server-created
// rows. The high 41 bits carry milliseconds since a fixed epoch, the low 22
// bits a per-millisecond sequence, so ids sort by creation time.
package idgen

import (
	"errors"
	"sync"
	"time"
)

// epochMillis is 2024-01-01T00:00:00Z. Fixed forever: changing it would break
// the time ordering of already-issued ids.
const epochMillis = 1704067200000

const (
	sequenceBits   = 22
	maxSequence    = (1 << sequenceBits) - 1
	timestampShift = sequenceBits
)

// ErrClockBackwards is returned when the wall clock is observed running
// behind the last issued id. Failing loudly beats silently minting a
// duplicate or out-of-order id.
var ErrClockBackwards = errors.New("idgen: clock moved backwards, refusing to generate id")

// Generator issues ids. Allocation is serialized by an internal mutex; share
// one instance per process rather than constructing one per caller.
type Generator struct {
	mu       sync.Mutex
	sequence int64
	lastMs   int64
	nowMs    func() int64
}

// New creates a Generator using the system clock.
func New() *Generator {
	return &Generator{
		lastMs: -1,
		nowMs:  func() int64 { return time.Now().UnixMilli() },
	}
}

// NewWithClock creates a Generator with a custom millisecond clock, for tests.
func NewWithClock(nowMs func() int64) *Generator {
	return &Generator{lastMs: -1, nowMs: nowMs}
}

// Next returns the next id. Within one process ids are strictly increasing.
func (g *Generator) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.nowMs()

	if ts < g.lastMs {
		return 0, ErrClockBackwards
	}

	if ts == g.lastMs {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// Sequence exhausted for this millisecond; spin to the next one.
			ts = g.waitNextMs(g.lastMs)
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ts

	return ((ts - epochMillis) << timestampShift) | g.sequence, nil
}

func (g *Generator) waitNextMs(lastMs int64) int64 {
	ts := g.nowMs()
	for ts <= lastMs {
		ts = g.nowMs()
	}

	return ts
}

// Timestamp extracts the creation time encoded in an id.
func Timestamp(id int64) time.Time {
	ms := (id >> timestampShift) + epochMillis

	return time.UnixMilli(ms).UTC()
}
