package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    atomic.Int64
}

var counters []*Counter

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

func registerCounter(name string) *Counter {
	c := newCounter(name)
	counters = append(counters, c)
	return c
}

// Inc adds one.
func (c *Counter) Inc() {
	if enabled.Load() {
		c.n.Add(1)
	}
}

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n.Load() }

// Reset zeroes the counter.
func (c *Counter) Reset() { c.n.Store(0) }

var (
	RowsCreated   = registerCounter("rows_created")
	RowsRecycled  = registerCounter("rows_recycled")
	FieldsMounted = registerCounter("fields_mounted")
	SceneReloads  = registerCounter("scene_reloads")
)

// CounterValues returns the non-zero counters keyed by name.
func CounterValues() map[string]int64 {
	out := make(map[string]int64)
	for _, c := range counters {
		if v := c.Value(); v > 0 {
			out[c.name] = v
		}
	}
	return out
}
