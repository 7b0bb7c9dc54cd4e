// Package health probes carrier APIs and records their reachability.
package health

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"clarence/internal/carrier/client"
	"clarence/internal/carrier/metrics"
	"clarence/internal/carrier/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/events"
)

// Registry is the carrier lookup and health sink the monitor uses.
type Registry interface {
	Get(ctx context.Context, carrierID id.CarrierID) (*models.Carrier, error)
	ListActive(ctx context.Context) ([]*models.Carrier, error)
	SetHealth(ctx context.Context, carrierID id.CarrierID, status models.HealthStatus, at time.Time) error
}

// Prober issues the health call.
type Prober interface {
	Health(ctx context.Context, carrier *models.Carrier) error
}

// ProbeResult describes one probe. Err is set when the probe failed; TimedOut
// distinguishes a deadline from other failures.
type ProbeResult struct {
	CarrierID id.CarrierID        `json:"carrierId"`
	Code      string              `json:"code,omitempty"`
	Status    models.HealthStatus `json:"status,omitempty"`
	Healthy   bool                `json:"healthy"`
	TimedOut  bool                `json:"timedOut"`
	CheckedAt time.Time           `json:"checkedAt"`
	Err       error               `json:"-"`
}

type Monitor struct {
	registry  Registry
	prober    Prober
	clock     func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
}

type Option func(*Monitor)

func WithClock(clock func() time.Time) Option {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = mt
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(m *Monitor) {
		m.publisher = p
	}
}

func New(registry Registry, prober Prober, opts ...Option) *Monitor {
	m := &Monitor{
		registry: registry,
		prober:   prober,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Probe checks one carrier and records operational or down. It never
// returns an error; failures are reported in the result.
func (m *Monitor) Probe(ctx context.Context, carrierID id.CarrierID) ProbeResult {
	carrier, err := m.registry.Get(ctx, carrierID)
	if err != nil {
		return ProbeResult{CarrierID: carrierID, CheckedAt: m.clock(), Err: err}
	}
	return m.probe(ctx, carrier)
}

func (m *Monitor) probe(ctx context.Context, carrier *models.Carrier) ProbeResult {
	err := m.prober.Health(ctx, carrier)
	res := ProbeResult{
		CarrierID: carrier.ID,
		Code:      carrier.Code,
		CheckedAt: m.clock(),
		Healthy:   err == nil,
		Status:    models.HealthOperational,
	}
	if err != nil {
		res.Status = models.HealthDown
		res.Err = err
		res.TimedOut = client.CategoryOf(err) == client.ErrorTimeout
		m.logger.WarnContext(ctx, "carrier health check failed",
			"carrier", carrier.Code,
			"timed_out", res.TimedOut,
			"error", err,
		)
	}

	if setErr := m.registry.SetHealth(ctx, carrier.ID, res.Status, res.CheckedAt); setErr != nil {
		m.logger.ErrorContext(ctx, "failed to record carrier health",
			"carrier", carrier.Code,
			"error", setErr,
		)
	}
	m.metrics.SetHealth(carrier.Code, gaugeValue(res.Status))
	if carrier.HealthStatus != res.Status {
		m.emitChange(ctx, carrier, res.Status, res.CheckedAt)
	}
	return res
}

// ProbeAll checks every active carrier concurrently.
func (m *Monitor) ProbeAll(ctx context.Context) []ProbeResult {
	carriers, err := m.registry.ListActive(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to list carriers for health probe", "error", err)
		return nil
	}
	results := make([]ProbeResult, len(carriers))
	var g errgroup.Group
	for i, c := range carriers {
		g.Go(func() error {
			results[i] = m.probe(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Run probes all carriers every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results := m.ProbeAll(ctx)
			down := 0
			for _, r := range results {
				if !r.Healthy {
					down++
				}
			}
			m.logger.DebugContext(ctx, "carrier health sweep", "probed", len(results), "down", down)
		}
	}
}

func (m *Monitor) emitChange(ctx context.Context, carrier *models.Carrier, to models.HealthStatus, at time.Time) {
	if m.publisher == nil {
		return
	}
	err := m.publisher.Emit(ctx, events.Event{
		Type:      events.CarrierHealthChanged,
		Timestamp: at,
		Subject:   carrier.ID.String(),
		Attributes: map[string]string{
			"carrier": carrier.Code,
			"from":    string(carrier.HealthStatus),
			"to":      string(to),
		},
	})
	if err != nil {
		m.logger.WarnContext(ctx, "failed to emit carrier health event", "error", err)
	}
}

func gaugeValue(s models.HealthStatus) float64 {
	switch s {
	case models.HealthOperational:
		return 1
	case models.HealthDegraded:
		return 0.5
	default:
		return 0
	}
}
