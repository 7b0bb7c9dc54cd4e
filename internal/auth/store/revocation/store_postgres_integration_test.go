//go:build integration

package revocation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clarence/internal/auth/store/revocation"
	"clarence/pkg/testutil/containers"
)

type PostgresListSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
}

func TestPostgresListSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresListSuite))
}

func (s *PostgresListSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
}

func (s *PostgresListSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "token_revocations"))
}

func (s *PostgresListSuite) TestConcurrentClaimsHaveOneWinner() {
	ctx := context.Background()
	list := revocation.NewPostgres(s.postgres.DB)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := list.RevokeIfAbsent(ctx, "jti-race", time.Hour)
			s.NoError(err)
			if claimed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, wins)

	revoked, err := list.IsRevoked(ctx, "jti-race")
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *PostgresListSuite) TestLapsedRowCanBeClaimed() {
	ctx := context.Background()
	now := time.Now().UTC()
	list := revocation.NewPostgres(s.postgres.DB, revocation.WithPostgresClock(func() time.Time { return now }))

	claimed, err := list.RevokeIfAbsent(ctx, "jti-1", time.Minute)
	s.Require().NoError(err)
	s.True(claimed)

	claimed, err = list.RevokeIfAbsent(ctx, "jti-1", time.Minute)
	s.Require().NoError(err)
	s.False(claimed)

	now = now.Add(2 * time.Minute)
	claimed, err = list.RevokeIfAbsent(ctx, "jti-1", time.Minute)
	s.Require().NoError(err)
	s.True(claimed)
}
