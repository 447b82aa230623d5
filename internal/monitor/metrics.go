// Package monitor tracks runtime counters and latency histograms for the
// execution core: API traffic, execution flow timings, and terminal stage
// distribution.
package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks overall system performance.
type SystemMetrics struct {
	mu sync.RWMutex

	// Latency histograms
	APILatency    *LatencyHistogram
	FlowLatency   *LatencyHistogram
	BrokerLatency *LatencyHistogram

	// Counters
	apiRequests     uint64
	apiErrors       uint64
	flowsStarted    uint64
	reconMismatches uint64

	// Terminal stage distribution
	stageCounts map[string]uint64

	lastUpdate time.Time
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		APILatency:    NewLatencyHistogram(1000),
		FlowLatency:   NewLatencyHistogram(1000),
		BrokerLatency: NewLatencyHistogram(1000),
		stageCounts:   make(map[string]uint64),
		lastUpdate:    time.Now(),
	}
}

// LatencyHistogram tracks latency samples with a sliding window and lazy
// stats computation.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		// Shift window: remove oldest
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Recomputes only when samples
// have changed since the last call.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	min, max := sorted[0], sorted[n-1]
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   min,
		Max:   max,
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementAPI increments the API request counter.
func (m *SystemMetrics) IncrementAPI() {
	atomic.AddUint64(&m.apiRequests, 1)
}

// IncrementAPIErrors increments the API error counter.
func (m *SystemMetrics) IncrementAPIErrors() {
	atomic.AddUint64(&m.apiErrors, 1)
}

// IncrementFlows increments the started execution flow counter.
func (m *SystemMetrics) IncrementFlows() {
	atomic.AddUint64(&m.flowsStarted, 1)
}

// IncrementReconMismatches increments the flagged reconciliation counter.
func (m *SystemMetrics) IncrementReconMismatches() {
	atomic.AddUint64(&m.reconMismatches, 1)
}

// CountStage records one terminal execution stage.
func (m *SystemMetrics) CountStage(stage string) {
	m.mu.Lock()
	m.stageCounts[stage]++
	m.lastUpdate = time.Now()
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	APILatency      LatencyStats      `json:"api_latency"`
	FlowLatency     LatencyStats      `json:"flow_latency"`
	BrokerLatency   LatencyStats      `json:"broker_latency"`
	APIRequests     uint64            `json:"api_requests"`
	APIErrors       uint64            `json:"api_errors"`
	FlowsStarted    uint64            `json:"flows_started"`
	ReconMismatches uint64            `json:"recon_mismatches"`
	StageCounts     map[string]uint64 `json:"stage_counts"`
	GoroutineCount  int               `json:"goroutine_count"`
	HeapAlloc       uint64            `json:"heap_alloc_bytes"`
	Timestamp       time.Time         `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	stages := make(map[string]uint64, len(m.stageCounts))
	for k, v := range m.stageCounts {
		stages[k] = v
	}
	m.mu.RUnlock()

	return MetricsSnapshot{
		APILatency:      m.APILatency.Stats(),
		FlowLatency:     m.FlowLatency.Stats(),
		BrokerLatency:   m.BrokerLatency.Stats(),
		APIRequests:     atomic.LoadUint64(&m.apiRequests),
		APIErrors:       atomic.LoadUint64(&m.apiErrors),
		FlowsStarted:    atomic.LoadUint64(&m.flowsStarted),
		ReconMismatches: atomic.LoadUint64(&m.reconMismatches),
		StageCounts:     stages,
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		Timestamp:       time.Now(),
	}
}
