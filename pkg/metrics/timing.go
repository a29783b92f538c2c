// Package metrics records in-process timings and counters for graphview.
//
// Timings cover scene loading and reconciliation plus the view hot paths:
// tree rebuilds, tree rendering, field refreshes and full frames. Nothing is
// exported over the network; the CLI prints a snapshot with -stats. Set
// GRAPHVIEW_METRICS=0 to turn collection off.
//
//	func (t *TreeModel[E]) Rebuild() {
//	    defer metrics.Timer(metrics.TreeRebuild)()
//	    ...
//	}
package metrics

import (
	"os"
	"sort"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("GRAPHVIEW_METRICS") != "0")
}

// Enabled reports whether collection is on.
func Enabled() bool { return enabled.Load() }

// SetEnabled turns collection on or off.
func SetEnabled(on bool) { enabled.Store(on) }

// TimingMetric accumulates durations for one named operation.
// It is safe for concurrent use.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64
	max   atomic.Int64
	min   atomic.Int64 // zero until the first sample
}

var timings []*TimingMetric

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

func registerTiming(name string) *TimingMetric {
	m := newTimingMetric(name)
	timings = append(timings, m)
	return m
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled.Load() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	for cur := m.max.Load(); ns > cur; cur = m.max.Load() {
		if m.max.CompareAndSwap(cur, ns) {
			break
		}
	}
	for cur := m.min.Load(); cur == 0 || ns < cur; cur = m.min.Load() {
		if m.min.CompareAndSwap(cur, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// MaxNs returns the slowest sample in nanoseconds.
func (m *TimingMetric) MaxNs() int64 { return m.max.Load() }

// MinNs returns the fastest sample in nanoseconds, or 0 without samples.
func (m *TimingMetric) MinNs() int64 { return m.min.Load() }

// AvgNs returns the mean sample in nanoseconds, or 0 without samples.
func (m *TimingMetric) AvgNs() int64 {
	n := m.count.Load()
	if n == 0 {
		return 0
	}
	return m.total.Load() / n
}

// Stats returns a point-in-time summary in milliseconds.
func (m *TimingMetric) Stats() TimingStats {
	return TimingStats{
		Name:    m.name,
		Count:   m.count.Load(),
		TotalMs: ms(m.total.Load()),
		AvgMs:   ms(m.AvgNs()),
		MaxMs:   ms(m.max.Load()),
		MinMs:   ms(m.min.Load()),
	}
}

// Reset drops all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
}

func ms(ns int64) float64 { return float64(ns) / float64(time.Millisecond) }

// TimingStats is the JSON form printed by -stats.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts a measurement and returns the func that ends it.
func Timer(m *TimingMetric) func() {
	if m == nil || !enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() { m.Record(time.Since(start)) }
}

var (
	SceneLoad    = registerTiming("scene_load")
	SceneApply   = registerTiming("scene_apply")
	TreeRebuild  = registerTiming("tree_rebuild")
	TreeRender   = registerTiming("tree_render")
	FieldRefresh = registerTiming("field_refresh")
	UIRender     = registerTiming("ui_render")
)

// AllTimingStats returns stats for every metric that has samples, slowest
// total first.
func AllTimingStats() []TimingStats {
	var out []TimingStats
	for _, m := range timings {
		if m.Count() > 0 {
			out = append(out, m.Stats())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalMs > out[j].TotalMs })
	return out
}

// ResetAll clears every timing and counter.
func ResetAll() {
	for _, m := range timings {
		m.Reset()
	}
	for _, c := range counters {
		c.Reset()
	}
}
