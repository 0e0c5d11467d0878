package engine

import "sync/atomic"

// Clock is a monotonic logical clock.
//
// Every request accepted by a Conn is stamped with the next seq. Seqs are
// assigned under the same lock as the enqueue, so seq order is queue order.
// That makes the dispatch order observable in logs and tests without
// reading wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
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

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
