package service

import id "clarence/pkg/domain"

// coverageDefaults are the carrier-agnostic limits and deductible sent with
// each quote call.
type coverageDefaults struct {
	limits     map[string]float64
	deductible float64
}

var defaultCoverages = map[id.CoverageType]coverageDefaults{
	id.CoverageGeneralLiability: {
		limits:     map[string]float64{"per_occurrence": 1_000_000, "general_aggregate": 2_000_000},
		deductible: 500,
	},
	id.CoverageProfessionalLiability: {
		limits:     map[string]float64{"per_claim": 1_000_000, "aggregate": 2_000_000},
		deductible: 5_000,
	},
	id.CoverageCyberLiability: {
		limits:     map[string]float64{"per_incident": 1_000_000, "aggregate": 2_000_000},
		deductible: 10_000,
	},
	id.CoverageWorkersComp: {
		limits:     map[string]float64{"each_accident": 1_000_000, "disease_policy_limit": 1_000_000, "disease_each_employee": 1_000_000},
		deductible: 0,
	},
	id.CoverageCommercialProperty: {
		limits:     map[string]float64{"building": 1_000_000, "business_personal_property": 500_000},
		deductible: 1_000,
	},
	id.CoverageBusinessAuto: {
		limits:     map[string]float64{"combined_single_limit": 1_000_000},
		deductible: 500,
	},
}

var coverageAliases = map[id.CoverageType]id.CoverageType{
	id.CoverageWorkersCompensation: id.CoverageWorkersComp,
	id.CoverageCommercialAuto:      id.CoverageBusinessAuto,
}

var fallbackCoverage = coverageDefaults{
	limits:     map[string]float64{"per_occurrence": 1_000_000, "aggregate": 2_000_000},
	deductible: 1_000,
}

// defaultsFor returns a copy of the defaults for c so callers may not mutate
// the shared table.
func defaultsFor(c id.CoverageType) coverageDefaults {
	if alias, ok := coverageAliases[c]; ok {
		c = alias
	}
	d, ok := defaultCoverages[c]
	if !ok {
		d = fallbackCoverage
	}
	limits := make(map[string]float64, len(d.limits))
	for k, v := range d.limits {
		limits[k] = v
	}
	return coverageDefaults{limits: limits, deductible: d.deductible}
}
