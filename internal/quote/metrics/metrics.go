// Package metrics exposes quote submission and fan-out instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submissions        prometheus.Counter
	ProcessingOutcomes *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	QuotesCollected    *prometheus.CounterVec
	BranchFailures     *prometheus.CounterVec
	QueueDepth         prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounter(prometheus.CounterOpts{
			Name: "clarence_quote_submissions_total",
			Help: "Quote requests accepted for processing",
		}),
		ProcessingOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clarence_quote_processing_total",
			Help: "Background quote processing runs by outcome",
		}, []string{"outcome"}),
		ProcessingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clarence_quote_processing_duration_seconds",
			Help:    "Time from processing start until every carrier branch settled",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		QuotesCollected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clarence_quote_carrier_quotes_total",
			Help: "Normalized carrier quotes persisted by status",
		}, []string{"carrier", "status"}),
		BranchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clarence_quote_branch_failures_total",
			Help: "Carrier-coverage calls that produced no quote",
		}, []string{"carrier", "category"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "clarence_quote_queue_depth",
			Help: "Processing jobs waiting for a worker",
		}),
	}
}

func (m *Metrics) IncrementSubmissions() {
	if m == nil {
		return
	}
	m.Submissions.Inc()
}

func (m *Metrics) ObserveProcessing(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProcessingOutcomes.WithLabelValues(outcome).Inc()
	m.ProcessingDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrementQuote(carrier, status string) {
	if m == nil {
		return
	}
	m.QuotesCollected.WithLabelValues(carrier, status).Inc()
}

func (m *Metrics) IncrementBranchFailure(carrier, category string) {
	if m == nil {
		return
	}
	m.BranchFailures.WithLabelValues(carrier, category).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
