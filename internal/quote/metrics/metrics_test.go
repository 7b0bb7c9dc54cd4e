package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncrementSubmissions()
	m.ObserveProcessing("quotes_ready", 2*time.Second)
	m.IncrementQuote("acme", "quoted")
	m.IncrementBranchFailure("acme", "timeout")
	m.SetQueueDepth(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessingOutcomes.WithLabelValues("quotes_ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuotesCollected.WithLabelValues("acme", "quoted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BranchFailures.WithLabelValues("acme", "timeout")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncrementSubmissions()
	m.ObserveProcessing("failed", time.Second)
	m.IncrementQuote("acme", "declined")
	m.IncrementBranchFailure("acme", "outage")
	m.SetQueueDepth(0)
}
