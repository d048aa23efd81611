package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/v1/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/v1/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/api/v1/tickets", "POST", "VALIDATION_FAILED")
	m.RecordSLASweep(2, nil)
	m.RecordSLASweep(0, errors.New("db down"))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/v1/tickets|GET|200"])
	assert.Equal(t, int64(20), snap.AvgLatencyMs["/api/v1/tickets|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/api/v1/tickets|POST|VALIDATION_FAILED"])
	assert.Equal(t, int64(2), snap.SLABreaches)
	assert.Equal(t, int64(2), snap.SLASweeps)
	assert.Equal(t, int64(1), snap.SLASweepErrors)
	require.NotNil(t, snap.LastSLASweepAt)
	assert.WithinDuration(t, time.Now(), *snap.LastSLASweepAt, time.Minute)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordSLASweep(1, nil)
	})
	assert.Nil(t, m.Snapshot().LastSLASweepAt)
}
