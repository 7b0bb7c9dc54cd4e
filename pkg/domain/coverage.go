package domain

import "strings"

// InsuranceType is the line of business a quote request is for.
type InsuranceType string

const (
	InsurancePersonal   InsuranceType = "personal"
	InsuranceCommercial InsuranceType = "commercial"
)

func (t InsuranceType) IsValid() bool {
	return t == InsurancePersonal || t == InsuranceCommercial
}

// CoverageType names one independently quoted coverage line.
type CoverageType string

const (
	CoverageGeneralLiability      CoverageType = "general_liability"
	CoverageProfessionalLiability CoverageType = "professional_liability"
	CoverageCyberLiability        CoverageType = "cyber_liability"
	CoverageWorkersComp           CoverageType = "workers_comp"
	CoverageCommercialProperty    CoverageType = "commercial_property"
	CoverageBusinessAuto          CoverageType = "business_auto"
	CoverageBOP                   CoverageType = "bop"
	CoverageUmbrella              CoverageType = "umbrella"

	CoverageWorkersCompensation  CoverageType = "workers_compensation"
	CoverageCommercialAuto       CoverageType = "commercial_auto"
	CoverageEmploymentPractices  CoverageType = "employment_practices_liability"
	CoverageDirectorsOfficers    CoverageType = "directors_officers"
	CoverageBusinessOwnersPolicy CoverageType = "business_owners_policy"
)

// Normalize lowercases and trims a coverage token from client input.
func (c CoverageType) Normalize() CoverageType {
	return CoverageType(strings.ToLower(strings.TrimSpace(string(c))))
}

// CoverageSet is an unordered set of coverage types.
type CoverageSet map[CoverageType]struct{}

func NewCoverageSet(types ...CoverageType) CoverageSet {
	s := make(CoverageSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

func (s CoverageSet) Has(t CoverageType) bool {
	_, ok := s[t]
	return ok
}

// Intersect returns the members of want that are in s, preserving want's order.
func (s CoverageSet) Intersect(want []CoverageType) []CoverageType {
	var out []CoverageType
	for _, t := range want {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}
