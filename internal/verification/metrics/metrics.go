package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts verification session outcomes.
type Metrics struct {
	Outcomes *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clarence_verification_outcomes_total",
			Help: "Verification session outcomes by purpose and result",
		}, []string{"purpose", "outcome"}), // outcome: created, verified, invalid_code, too_many_attempts, not_found
	}
}

func (m *Metrics) IncrementOutcome(purpose, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(purpose, outcome).Inc()
	}
}
