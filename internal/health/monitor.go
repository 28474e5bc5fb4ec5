// Package health samples the fuzzer process's own resource usage
// (heap, goroutine count, GC pauses) on an interval, so a long-running
// session can be watched for leaks or runaway goroutines without
// touching any fuzzing state. Adapted from the teacher's
// internal/memory monitor, narrowed to heap and goroutine-count alerts,
// which cmd/minilop logs to stderr; neither the TUI nor the monitoring
// server displays these samples.
package health

import (
	"runtime"
	"sync"
	"time"
)

// Stats is one sample of process resource usage.
type Stats struct {
	Alloc        uint64    `json:"alloc"`
	TotalAlloc   uint64    `json:"total_alloc"`
	Sys          uint64    `json:"sys"`
	NumGC        uint32    `json:"num_gc"`
	PauseTotalNs uint64    `json:"pause_total_ns"`
	HeapAlloc    uint64    `json:"heap_alloc"`
	HeapInuse    uint64    `json:"heap_inuse"`
	HeapObjects  uint64    `json:"heap_objects"`
	NumGoroutine int       `json:"num_goroutine"`
	Timestamp    time.Time `json:"timestamp"`
}

// Threshold configures when Monitor raises an Alert.
type Threshold struct {
	HeapAllocBytes uint64
	GoroutineCount int
}

// DefaultThreshold is generous enough not to fire during normal
// fuzzing; it exists to catch a harness or pool leak over a long run.
func DefaultThreshold() Threshold {
	return Threshold{
		HeapAllocBytes: 1 << 30, // 1GB
		GoroutineCount: 1000,
	}
}

// AlertType names which threshold an Alert crossed.
type AlertType string

const (
	AlertHeapSize  AlertType = "heap_size"
	AlertGoroutine AlertType = "goroutine_count"
)

// Alert reports a threshold crossing.
type Alert struct {
	Type      AlertType
	Message   string
	Value     uint64
	Threshold uint64
	Timestamp time.Time
}

// Monitor samples Stats on interval and records a bounded history.
type Monitor struct {
	interval   time.Duration
	threshold  Threshold
	maxHistory int

	mu      sync.RWMutex
	history []Stats
	running bool
	stopCh  chan struct{}
	alerts  chan Alert
}

// NewMonitor builds a Monitor; interval defaults to 10s.
func NewMonitor(interval time.Duration, threshold Threshold) *Monitor {
	if interval == 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		interval:   interval,
		threshold:  threshold,
		maxHistory: 1000,
		history:    make([]Stats, 0, 100),
		stopCh:     make(chan struct{}),
		alerts:     make(chan Alert, 100),
	}
}

// Start begins sampling in a background goroutine. Safe to call once;
// a second call is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go m.loop()
}

// Stop ends sampling.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()
	close(m.stopCh)
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			s := Sample()
			m.record(s)
			m.checkThresholds(s)
		}
	}
}

// Sample takes a single, synchronous reading of runtime.MemStats.
func Sample() Stats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Stats{
		Alloc:        ms.Alloc,
		TotalAlloc:   ms.TotalAlloc,
		Sys:          ms.Sys,
		NumGC:        ms.NumGC,
		PauseTotalNs: ms.PauseTotalNs,
		HeapAlloc:    ms.HeapAlloc,
		HeapInuse:    ms.HeapInuse,
		HeapObjects:  ms.HeapObjects,
		NumGoroutine: runtime.NumGoroutine(),
		Timestamp:    time.Now(),
	}
}

func (m *Monitor) record(s Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, s)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
}

func (m *Monitor) checkThresholds(s Stats) {
	if m.threshold.HeapAllocBytes > 0 && s.HeapAlloc > m.threshold.HeapAllocBytes {
		m.sendAlert(Alert{
			Type:      AlertHeapSize,
			Message:   "heap allocation exceeded threshold",
			Value:     s.HeapAlloc,
			Threshold: m.threshold.HeapAllocBytes,
			Timestamp: s.Timestamp,
		})
	}
	if m.threshold.GoroutineCount > 0 && s.NumGoroutine > m.threshold.GoroutineCount {
		m.sendAlert(Alert{
			Type:      AlertGoroutine,
			Message:   "goroutine count exceeded threshold",
			Value:     uint64(s.NumGoroutine),
			Threshold: uint64(m.threshold.GoroutineCount),
			Timestamp: s.Timestamp,
		})
	}
}

func (m *Monitor) sendAlert(a Alert) {
	select {
	case m.alerts <- a:
	default:
		// Alert channel full; drop rather than block the sampling loop.
	}
}

// Alerts returns the channel threshold crossings are published on.
func (m *Monitor) Alerts() <-chan Alert { return m.alerts }

// Latest returns the most recent sample, taking one immediately if no
// history exists yet.
func (m *Monitor) Latest() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return Sample()
	}
	return m.history[len(m.history)-1]
}

// History returns every recorded sample, oldest first.
func (m *Monitor) History() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Stats, len(m.history))
	copy(out, m.history)
	return out
}
