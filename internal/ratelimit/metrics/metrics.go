package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions     *prometheus.CounterVec
	LoginFailures prometheus.Counter
	LockoutsTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clarence_ratelimit_decisions_total",
			Help: "Rate limit decisions by scope and result",
		}, []string{"scope", "result"}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clarence_ratelimit_login_failures_recorded_total",
			Help: "Total number of failed logins recorded for lockout",
		}),
		LockoutsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clarence_ratelimit_lockouts_total",
			Help: "Total number of phone lockouts triggered",
		}),
	}
}

func (m *Metrics) IncrementDecision(scope string, allowed bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.Decisions.WithLabelValues(scope, result).Inc()
}

func (m *Metrics) IncrementLoginFailures() {
	if m != nil {
		m.LoginFailures.Inc()
	}
}

func (m *Metrics) IncrementLockouts() {
	if m != nil {
		m.LockoutsTotal.Inc()
	}
}
