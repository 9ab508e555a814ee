package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/conversation/start", "POST", 200, 4*time.Millisecond)
	m.RecordRequest("/api/conversation/start", "POST", 200, 2*time.Millisecond)
	m.RecordError("/api/conversation/confirm", "POST", "INVALID_STATE_TRANSITION")
	m.Inc(CounterTicketsCreated, 1)
	m.Inc(CounterTicketsCreated, 2)

	snap := m.Snapshot()
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, "/api/conversation/start|POST|200", snap.Requests[0].Key)
	assert.Equal(t, int64(2), snap.Requests[0].Count)
	assert.InDelta(t, 3.0, snap.Requests[0].AvgLatencyMsec, 0.01)
	assert.Equal(t, int64(1), snap.Errors["/api/conversation/confirm|POST|INVALID_STATE_TRANSITION"])
	assert.Equal(t, int64(3), snap.Counters[CounterTicketsCreated])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.Inc(CounterTicketsCreated, 1)
	assert.Empty(t, m.Snapshot().Requests)
}
