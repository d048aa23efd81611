package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	slaBreaches  int64
	slaSweeps    int64
	sweepErrors  int64
	lastSweepAt  time.Time
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests       map[string]int64 `json:"requests"`
	Errors         map[string]int64 `json:"errors"`
	AvgLatencyMs   map[string]int64 `json:"avg_latency_ms"`
	SLABreaches    int64            `json:"sla_breaches"`
	SLASweeps      int64            `json:"sla_sweeps"`
	SLASweepErrors int64            `json:"sla_sweep_errors"`
	LastSLASweepAt *time.Time       `json:"last_sla_sweep_at"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordSLASweep counts a finished monitor sweep and the breaches it newly flagged.
func (m *Metrics) RecordSLASweep(newBreaches int, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slaSweeps++
	m.lastSweepAt = time.Now().UTC()
	m.slaBreaches += int64(newBreaches)
	if err != nil {
		m.sweepErrors++
	}
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Requests:       make(map[string]int64, len(m.requestCount)),
		Errors:         make(map[string]int64, len(m.errorCount)),
		AvgLatencyMs:   make(map[string]int64, len(m.latencyTotal)),
		SLABreaches:    m.slaBreaches,
		SLASweeps:      m.slaSweeps,
		SLASweepErrors: m.sweepErrors,
	}
	if !m.lastSweepAt.IsZero() {
		last := m.lastSweepAt
		snap.LastSLASweepAt = &last
	}
	for k, v := range m.requestCount {
		snap.Requests[k] = v
		if v > 0 {
			snap.AvgLatencyMs[k] = m.latencyTotal[k].Milliseconds() / v
		}
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
