//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clarence/internal/carrier/models"
	"clarence/internal/carrier/store"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/sentinel"
	"clarence/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"policies", "carrier_quotes", "quote_request_coverages", "quote_requests", "carriers")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestSeedIsIdempotent() {
	ctx := context.Background()
	now := time.Now().UTC()

	n, err := store.SeedCarriers(ctx, s.store, "http://carrier.test", "key", now)
	s.Require().NoError(err)
	s.Positive(n)

	again, err := store.SeedCarriers(ctx, s.store, "http://carrier.test", "key", now)
	s.Require().NoError(err)
	s.Zero(again)

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(n, count)

	active, err := s.store.ListActive(ctx)
	s.Require().NoError(err)
	s.Len(active, n)
}

func (s *PostgresStoreSuite) TestUpdateHealth() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	c := &models.Carrier{
		ID:                 id.NewCarrierID(),
		Code:               "acme",
		Name:               "Acme Mutual",
		IsActive:           true,
		APIBaseURL:         "http://carrier.test/acme",
		SupportsCommercial: true,
		SupportedCoverages: []id.CoverageType{id.CoverageGeneralLiability, id.CoverageCyberLiability},
		HealthStatus:       models.HealthOperational,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.Require().NoError(s.store.Save(ctx, c))

	checked := now.Add(time.Minute)
	s.Require().NoError(s.store.UpdateHealth(ctx, c.ID, models.HealthDown, checked))

	found, err := s.store.FindByCode(ctx, "acme")
	s.Require().NoError(err)
	s.Equal(models.HealthDown, found.HealthStatus)
	s.Require().NotNil(found.LastHealthCheck)
	s.True(checked.Equal(*found.LastHealthCheck))
	s.ElementsMatch(c.SupportedCoverages, found.SupportedCoverages)

	err = s.store.UpdateHealth(ctx, id.NewCarrierID(), models.HealthDown, checked)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestCodeOwnedByAnotherCarrier() {
	ctx := context.Background()
	now := time.Now().UTC()
	first := &models.Carrier{ID: id.NewCarrierID(), Code: "dup", Name: "First", IsActive: true, APIBaseURL: "http://a", CreatedAt: now, UpdatedAt: now}
	second := &models.Carrier{ID: id.NewCarrierID(), Code: "dup", Name: "Second", IsActive: true, APIBaseURL: "http://b", CreatedAt: now, UpdatedAt: now}
	s.Require().NoError(s.store.Save(ctx, first))

	err := s.store.Save(ctx, second)
	s.ErrorIs(err, sentinel.ErrConflict)
}
