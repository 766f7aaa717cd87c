package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall-clock instant tests stamp queued operations with.
var Epoch = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// DeterministicClock is a resettable logical clock for tests.
//
// It satisfies engine.SeqClock, so a session built with it orders fetches
// with the same seq values on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a new deterministic clock starting at 0.
//
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{seq: 0}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset resets the clock to 0.
//
// After Reset(), the next call to Next() returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// Now returns Epoch shifted by the current sequence in seconds. Pass it to
// engine.WithNow so queued_at follows the fetch order.
func (c *DeterministicClock) Now() time.Time {
	return Epoch.Add(time.Duration(c.Current()) * time.Second)
}

// FixedNow returns a wall clock stuck at t.
func FixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
