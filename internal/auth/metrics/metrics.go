// Package metrics exposes auth flow counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registrations      prometheus.Counter
	Logins             *prometheus.CounterVec
	TokenRefreshes     *prometheus.CounterVec
	RevocationLookupMs prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "clarence_auth_registrations_total",
			Help: "Accounts created",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clarence_auth_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		TokenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clarence_auth_token_refreshes_total",
			Help: "Refresh token rotations by outcome",
		}, []string{"outcome"}),
		RevocationLookupMs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clarence_auth_revocation_lookup_ms",
			Help:    "Latency of refresh token blacklist lookups in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
	}
}

func (m *Metrics) IncrementRegistrations() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

func (m *Metrics) IncrementLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRefresh(outcome string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}
