package engine

import "sync/atomic"

// Clock is a monotonic logical clock stamping transactions.
//
// Every committed transaction gets a strictly increasing seq number. The seq
// is diagnostic: traces and logs order by it regardless of wall time, so two
// runs over the same input produce identical stamps. It never participates
// in reconciliation decisions.
//
// Thread-safety: safe for concurrent use, though the controller's
// single-writer design means only the worker calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
