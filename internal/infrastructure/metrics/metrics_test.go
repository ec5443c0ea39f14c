package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestMetrics() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry(), nil)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordConnect(ConnectOK)
		m.RecordEviction()
		m.RecordBroadcast(3)
		m.RecordEvent("message_created")
		m.RecordUnreadLookup(true)
		m.RecordSelfHeal("negative")
		m.SetHubSizes(1, 1)
		m.RecordHTTPRequest("GET", "/x", 200, time.Millisecond)
	})
}

func TestRealtimeCounters(t *testing.T) {
	m := newTestMetrics()

	m.RecordConnect(ConnectOK)
	m.RecordConnect(ConnectOK)
	m.RecordConnect(ConnectQuota)
	m.RecordEviction()
	m.RecordEvent("message_created")
	m.RecordUnreadLookup(true)
	m.RecordUnreadLookup(false)
	m.RecordUnreadLookup(false)
	m.SetHubSizes(4, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectsTotal.WithLabelValues(ConnectOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectsTotal.WithLabelValues(ConnectQuota)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvictionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("message_created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnreadCacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UnreadCacheMisses))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UsersOnline))
}

func TestCategorizeStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"}, {301, "3xx"}, {404, "4xx"}, {503, "5xx"}, {0, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeStatus(tt.code))
	}
}

func TestShouldSkipEndpoint(t *testing.T) {
	assert.True(t, ShouldSkipEndpoint("/metrics"))
	assert.True(t, ShouldSkipEndpoint("/api/v1/ws"))
	assert.False(t, ShouldSkipEndpoint("/api/v1/unreads"))
}
