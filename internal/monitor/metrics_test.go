package monitor

import (
	"testing"
	"time"
)

func TestLatencyHistogramStats(t *testing.T) {
	h := NewLatencyHistogram(10)
	for _, ms := range []float64{1, 2, 3, 4, 5} {
		h.Record(ms)
	}

	stats := h.Stats()
	if stats.Count != 5 {
		t.Fatalf("count=%d", stats.Count)
	}
	if stats.Min != 1 || stats.Max != 5 {
		t.Fatalf("min=%v max=%v", stats.Min, stats.Max)
	}
	if stats.Avg != 3 {
		t.Fatalf("avg=%v", stats.Avg)
	}

	// Cached result is reused until a new sample lands.
	if again := h.Stats(); again != stats {
		t.Fatalf("cached stats changed: %+v vs %+v", again, stats)
	}
	h.RecordDuration(10 * time.Millisecond)
	if h.Stats().Count != 6 {
		t.Fatal("new sample not reflected")
	}
}

func TestLatencyHistogramSlidingWindow(t *testing.T) {
	h := NewLatencyHistogram(3)
	for _, ms := range []float64{100, 1, 2, 3} {
		h.Record(ms)
	}
	stats := h.Stats()
	if stats.Count != 3 || stats.Max != 3 {
		t.Fatalf("oldest sample not evicted: %+v", stats)
	}
}

func TestSystemMetricsSnapshot(t *testing.T) {
	m := NewSystemMetrics()
	m.IncrementAPI()
	m.IncrementAPI()
	m.IncrementAPIErrors()
	m.IncrementFlows()
	m.IncrementReconMismatches()
	m.CountStage("FILLED")
	m.CountStage("FILLED")
	m.CountStage("REJECTED")
	m.FlowLatency.RecordDuration(250 * time.Millisecond)

	snap := m.GetSnapshot()
	if snap.APIRequests != 2 || snap.APIErrors != 1 {
		t.Fatalf("api counters: %+v", snap)
	}
	if snap.FlowsStarted != 1 || snap.ReconMismatches != 1 {
		t.Fatalf("flow counters: %+v", snap)
	}
	if snap.StageCounts["FILLED"] != 2 || snap.StageCounts["REJECTED"] != 1 {
		t.Fatalf("stage counts: %v", snap.StageCounts)
	}
	if snap.FlowLatency.Count != 1 {
		t.Fatalf("flow latency: %+v", snap.FlowLatency)
	}

	// The snapshot map is a copy.
	snap.StageCounts["FILLED"] = 99
	if m.GetSnapshot().StageCounts["FILLED"] != 2 {
		t.Fatal("snapshot shares internal map")
	}
}
