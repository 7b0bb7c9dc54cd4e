// Package registry answers which carriers can quote a request.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"clarence/internal/carrier/models"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/sentinel"
)

// Store is the carrier persistence the registry reads and updates.
type Store interface {
	ListActive(ctx context.Context) ([]*models.Carrier, error)
	FindByID(ctx context.Context, carrierID id.CarrierID) (*models.Carrier, error)
	UpdateHealth(ctx context.Context, carrierID id.CarrierID, status models.HealthStatus, at time.Time) error
}

type Registry struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func New(store Store, opts ...Option) *Registry {
	r := &Registry{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListActive returns every active carrier ordered by name.
func (r *Registry) ListActive(ctx context.Context) ([]*models.Carrier, error) {
	carriers, err := r.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list carriers")
	}
	return carriers, nil
}

// Get loads one carrier regardless of its active flag.
func (r *Registry) Get(ctx context.Context, carrierID id.CarrierID) (*models.Carrier, error) {
	c, err := r.store.FindByID(ctx, carrierID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Carrier not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load carrier")
	}
	return c, nil
}

// FindEligible returns active carriers that write insuranceType and support
// at least one of the requested coverages. Health does not affect eligibility.
func (r *Registry) FindEligible(ctx context.Context, insuranceType id.InsuranceType, requested []id.CoverageType) ([]*models.Carrier, error) {
	carriers, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var eligible []*models.Carrier
	for _, c := range carriers {
		if !c.Supports(insuranceType) {
			continue
		}
		if len(c.Quotable(requested)) == 0 {
			continue
		}
		eligible = append(eligible, c)
	}
	r.logger.DebugContext(ctx, "resolved eligible carriers",
		"insurance_type", string(insuranceType),
		"requested", len(requested),
		"eligible", len(eligible),
	)
	return eligible, nil
}

// SetHealth records an observed health status.
func (r *Registry) SetHealth(ctx context.Context, carrierID id.CarrierID, status models.HealthStatus, at time.Time) error {
	if err := r.store.UpdateHealth(ctx, carrierID, status, at); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Carrier not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update carrier health")
	}
	return nil
}
