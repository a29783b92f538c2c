package metrics

import (
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	if m.Count() != 2 {
		t.Fatalf("expected 2 measurements, got %d", m.Count())
	}
	if m.MinNs() != int64(2*time.Millisecond) || m.MaxNs() != int64(4*time.Millisecond) {
		t.Errorf("unexpected min/max %d/%d", m.MinNs(), m.MaxNs())
	}
	if m.AvgNs() != int64(3*time.Millisecond) {
		t.Errorf("expected avg 3ms, got %d", m.AvgNs())
	}

	st := m.Stats()
	if st.Name != "test" || st.AvgMs != 3 {
		t.Errorf("unexpected stats %+v", st)
	}

	m.Reset()
	if m.Count() != 0 || m.MinNs() != 0 {
		t.Error("reset should clear measurements")
	}
}

func TestDisabledSkipsRecording(t *testing.T) {
	prev := Enabled()
	SetEnabled(false)
	defer SetEnabled(prev)

	m := newTimingMetric("off")
	Timer(m)()
	m.Record(time.Millisecond)
	if m.Count() != 0 {
		t.Errorf("disabled metrics should not record, got %d", m.Count())
	}

	c := newCounter("off")
	c.Inc()
	if c.Value() != 0 {
		t.Errorf("disabled counter should not count, got %d", c.Value())
	}
}

func TestCountersAndResetAll(t *testing.T) {
	prev := Enabled()
	SetEnabled(true)
	defer SetEnabled(prev)

	ResetAll()
	RowsCreated.Inc()
	RowsCreated.Inc()
	Timer(TreeRebuild)()

	if got := CounterValues()["rows_created"]; got != 2 {
		t.Errorf("expected 2 rows_created, got %d", got)
	}
	if len(AllTimingStats()) != 1 {
		t.Errorf("expected stats for one metric, got %d", len(AllTimingStats()))
	}

	ResetAll()
	if len(CounterValues()) != 0 || len(AllTimingStats()) != 0 {
		t.Error("ResetAll should clear everything")
	}
}

func TestAllTimingStatsSlowestFirst(t *testing.T) {
	prev := Enabled()
	SetEnabled(true)
	defer SetEnabled(prev)
	ResetAll()
	defer ResetAll()

	SceneLoad.Record(time.Millisecond)
	UIRender.Record(5 * time.Millisecond)
	UIRender.Record(time.Millisecond)

	stats := AllTimingStats()
	if len(stats) != 2 || stats[0].Name != "ui_render" || stats[1].Name != "scene_load" {
		t.Fatalf("unexpected order %+v", stats)
	}
	if stats[0].MinMs != 1 || stats[0].MaxMs != 5 || stats[0].TotalMs != 6 {
		t.Errorf("unexpected ui_render stats %+v", stats[0])
	}
}
