package core

// Counter tracks how many things are outstanding. Inc and Dec may be called
// from any goroutine; Dec reports the transition to zero exactly once per
// drain.
type Counter struct {
	_ Pad
	v PaddedInt64
}

// Inc adds one and returns the new value.
func (c *Counter) Inc() int64 {
	return c.v.Add(1)
}

// Dec subtracts one and reports whether the counter reached zero.
func (c *Counter) Dec() bool {
	n := c.v.Add(-1)
	if n < 0 {
		panic("Counter: decremented below zero")
	}
	return n == 0
}

// Load returns the current value.
func (c *Counter) Load() int64 {
	return c.v.Load()
}

// Reset sets the counter to n. Only valid while no other goroutine uses it.
func (c *Counter) Reset(n int64) {
	c.v.Store(n)
}
