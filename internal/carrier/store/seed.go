package store

import (
	"context"
	"fmt"
	"time"

	"clarence/internal/carrier/models"
	id "clarence/pkg/domain"
)

// Writer is the subset of a carrier store the seeder needs.
type Writer interface {
	Count(ctx context.Context) (int, error)
	Save(ctx context.Context, c *models.Carrier) error
}

// DefaultCarriers are the development integration profiles. They all point
// at one simulator base URL.
func DefaultCarriers(baseURL, apiKey string, now time.Time) []*models.Carrier {
	mk := func(code, name, specialization string, coverages ...id.CoverageType) *models.Carrier {
		return &models.Carrier{
			ID:                 id.NewCarrierID(),
			Code:               code,
			Name:               name,
			Specialization:     specialization,
			IsActive:           true,
			APIBaseURL:         baseURL,
			APIKey:             apiKey,
			SupportsPersonal:   true,
			SupportsCommercial: true,
			SupportedCoverages: coverages,
			HealthStatus:       models.HealthOperational,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
	}
	return []*models.Carrier{
		mk("reliable_insurance", "Reliable Insurance Co.", "General Liability, Professional Liability",
			id.CoverageGeneralLiability, id.CoverageProfessionalLiability, id.CoverageWorkersCompensation,
			id.CoverageCommercialAuto, id.CoverageCyberLiability, id.CoverageEmploymentPractices),
		mk("techshield_underwriters", "TechShield Underwriters", "Technology E&O, Cyber Liability",
			id.CoverageProfessionalLiability, id.CoverageCyberLiability, id.CoverageEmploymentPractices,
			id.CoverageDirectorsOfficers),
		mk("premier_underwriters", "Premier Underwriters Group", "Full Commercial Lines",
			id.CoverageGeneralLiability, id.CoverageProfessionalLiability, id.CoverageWorkersCompensation,
			id.CoverageCommercialAuto, id.CoverageCyberLiability, id.CoverageEmploymentPractices,
			id.CoverageDirectorsOfficers, id.CoverageBusinessOwnersPolicy),
		mk("fastbind_insurance", "FastBind Insurance", "Quick-bind small business policies",
			id.CoverageGeneralLiability, id.CoverageProfessionalLiability, id.CoverageBusinessOwnersPolicy),
	}
}

// SeedCarriers writes DefaultCarriers into an empty store. It returns the
// number written; a non-empty store is left untouched.
func SeedCarriers(ctx context.Context, w Writer, baseURL, apiKey string, now time.Time) (int, error) {
	n, err := w.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	carriers := DefaultCarriers(baseURL, apiKey, now)
	for _, c := range carriers {
		if err := w.Save(ctx, c); err != nil {
			return 0, fmt.Errorf("seed carrier %s: %w", c.Code, err)
		}
	}
	return len(carriers), nil
}
