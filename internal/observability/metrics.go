package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Domain counters exposed on /metrics.
const (
	CounterConversationsStarted  = "conversations_started"
	CounterConversationsRejected = "conversations_rejected"
	CounterTicketsCreated        = "tickets_created"
	CounterDuplicatesFlagged     = "duplicates_flagged"
	CounterConversationsSwept    = "conversations_swept"
	CounterNotificationsFailed   = "notifications_failed"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	startedAt    time.Time
	requestCount map[string]int64
	errorCount   map[string]int64
	latency      map[string]time.Duration
	counters     map[string]int64
}

// RouteStat is the aggregated view of one method/path/status tuple.
type RouteStat struct {
	Key            string  `json:"key"`
	Count          int64   `json:"count"`
	AvgLatencyMsec float64 `json:"avgLatencyMs"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	UptimeSeconds int64            `json:"uptimeSeconds"`
	Requests      []RouteStat      `json:"requests"`
	Errors        map[string]int64 `json:"errors"`
	Counters      map[string]int64 `json:"counters"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		startedAt:    time.Now(),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latency:      make(map[string]time.Duration),
		counters:     make(map[string]int64),
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
	m.latency[key] += duration
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

// Inc bumps a named domain counter.
func (m *Metrics) Inc(name string, delta int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += delta
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Requests:      make([]RouteStat, 0, len(m.requestCount)),
		Errors:        make(map[string]int64, len(m.errorCount)),
		Counters:      make(map[string]int64, len(m.counters)),
	}
	for key, count := range m.requestCount {
		stat := RouteStat{Key: key, Count: count}
		if count > 0 {
			stat.AvgLatencyMsec = float64(m.latency[key].Microseconds()) / 1000 / float64(count)
		}
		snap.Requests = append(snap.Requests, stat)
	}
	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].Key < snap.Requests[j].Key })
	for key, count := range m.errorCount {
		snap.Errors[key] = count
	}
	for key, count := range m.counters {
		snap.Counters[key] = count
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
