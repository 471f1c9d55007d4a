package engine

import "sync/atomic"

// Clock is the monotonic logical clock used to stamp every event with a
// strictly increasing seq number. Ordering by seq (never wall-clock time)
// is what makes replay produce an identical trace.
//
// Thread-safety: Clock uses atomics, though the engine's single-writer
// design means only one goroutine normally calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used when resuming a session from a snapshot.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
