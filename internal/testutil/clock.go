// Package testutil provides deterministic substitutes for the engine's
// runtime collaborators: a resettable clock, fixed and sequential token
// generators, and a recording delegate that captures the edit stream as
// compact strings for assertions and golden traces.
package testutil

import "sync"

// DeterministicClock is a resettable logical clock. Unlike engine.Clock it
// can be wound back to zero, so the same scenario replays with identical
// sequence numbers.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock returns a clock whose first Next is 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset winds the clock back to zero.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
