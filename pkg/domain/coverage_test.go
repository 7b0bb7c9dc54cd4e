package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoverageSet_Intersect(t *testing.T) {
	supported := NewCoverageSet(CoverageGeneralLiability, CoverageCyberLiability)

	got := supported.Intersect([]CoverageType{CoverageWorkersComp, CoverageCyberLiability, CoverageGeneralLiability})
	assert.Equal(t, []CoverageType{CoverageCyberLiability, CoverageGeneralLiability}, got)

	assert.Empty(t, supported.Intersect([]CoverageType{CoverageBusinessAuto}))
	assert.Empty(t, NewCoverageSet().Intersect([]CoverageType{CoverageGeneralLiability}))
}

func TestInsuranceType_IsValid(t *testing.T) {
	assert.True(t, InsuranceCommercial.IsValid())
	assert.True(t, InsurancePersonal.IsValid())
	assert.False(t, InsuranceType("marine").IsValid())
}

func TestCoverageType_Normalize(t *testing.T) {
	assert.Equal(t, CoverageCyberLiability, CoverageType("  Cyber_Liability ").Normalize())
}
