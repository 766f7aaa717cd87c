package engine

import "sync/atomic"

// SeqClock hands out strictly increasing sequence numbers.
// Implemented by Clock and by testutil.DeterministicClock.
type SeqClock interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock used to order fetch requests.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// Fetch callers stamp their request from their own goroutine, before the
// job reaches the session.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
