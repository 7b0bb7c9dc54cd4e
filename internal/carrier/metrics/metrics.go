// Package metrics exposes carrier call and health instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CallDuration       *prometheus.HistogramVec
	CallsTotal         *prometheus.CounterVec
	HealthStatus       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clarence_carrier_call_duration_seconds",
			Help:    "Outbound carrier API latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"carrier", "operation"}),
		CallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clarence_carrier_calls_total",
			Help: "Outbound carrier API calls by outcome",
		}, []string{"carrier", "operation", "outcome"}),
		HealthStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clarence_carrier_health",
			Help: "Last probed carrier health: 1 operational, 0.5 degraded, 0 down",
		}, []string{"carrier"}),
		BreakerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clarence_carrier_breaker_transitions_total",
			Help: "Per-carrier circuit breaker state changes",
		}, []string{"carrier", "to"}),
	}
}

func (m *Metrics) ObserveCall(carrier, operation, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.CallDuration.WithLabelValues(carrier, operation).Observe(latency.Seconds())
	m.CallsTotal.WithLabelValues(carrier, operation, outcome).Inc()
}

func (m *Metrics) SetHealth(carrier string, value float64) {
	if m == nil {
		return
	}
	m.HealthStatus.WithLabelValues(carrier).Set(value)
}

func (m *Metrics) IncrementBreakerTransition(carrier, to string) {
	if m == nil {
		return
	}
	m.BreakerTransitions.WithLabelValues(carrier, to).Inc()
}
