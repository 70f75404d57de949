package clock

import (
	"sync"
	"time"
)

// System is a wall clock guaranteed to be monotonically non-decreasing
// even if the wall clock is stepped backwards.
type System struct {
	mu   sync.Mutex
	last time.Time
}

// NewSystem creates a system clock.
func NewSystem() *System {
	return &System{}
}

// Now returns the current time, never earlier than a previously returned
// value.
func (c *System) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}

// Manual is a hand-advanced clock for tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock frozen at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the frozen time.
func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward. Negative deltas are ignored to preserve
// the non-decreasing guarantee.
func (c *Manual) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
