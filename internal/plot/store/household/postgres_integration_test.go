//go:build integration

package household_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fieldplot/internal/plot/models"
	"fieldplot/internal/plot/store/household"
	plotstore "fieldplot/internal/plot/store/plot"
	"fieldplot/pkg/platform/sentinel"
	"fieldplot/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	plots    *plotstore.PostgresStore
	store    *household.PostgresStore
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
	s.plots = plotstore.NewPostgresStore(s.postgres.DB)
	s.store = household.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "household_members", "households", "plot_log_entries", "plot_logs", "plots")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedPlot() *models.Plot {
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &models.Plot{
		ID:              uuid.New(),
		PlotIdentifier:  "100000001",
		MapArea:         "test_community",
		TargetLatitude:  -25.330234,
		TargetLongitude: 25.556882,
		TargetRadius:    25.0,
		Accessible:      true,
		ReportDatetime:  now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.Require().NoError(s.plots.Create(context.Background(), p))
	return p
}

func newHousehold(plotID uuid.UUID, sequence int) *models.Household {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Household{
		ID:             uuid.New(),
		PlotID:         plotID,
		Sequence:       sequence,
		ReportDatetime: now,
		CreatedAt:      now,
	}
}

func (s *PostgresStoreSuite) TestSequenceUniquePerPlot() {
	ctx := context.Background()
	p := s.seedPlot()

	s.Require().NoError(s.store.Create(ctx, newHousehold(p.ID, 1)))
	s.ErrorIs(s.store.Create(ctx, newHousehold(p.ID, 1)), sentinel.ErrConflict)
	s.Require().NoError(s.store.Create(ctx, newHousehold(p.ID, 2)))

	n, err := s.store.Count(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(2, n)

	list, err := s.store.ListByPlot(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(1, list[0].Sequence)
	s.Equal(2, list[1].Sequence)
}

// TestConcurrentSequenceClaim mirrors two devices reconciling the same plot
// at once: each sequence slot is claimed exactly once.
func (s *PostgresStoreSuite) TestConcurrentSequenceClaim() {
	ctx := context.Background()
	p := s.seedPlot()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newHousehold(p.ID, 1))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestDeleteProtectedByMembers() {
	ctx := context.Background()
	p := s.seedPlot()

	h := newHousehold(p.ID, 1)
	s.Require().NoError(s.store.Create(ctx, h))

	// A member row references the household with ON DELETE RESTRICT.
	_, err := s.postgres.DB.ExecContext(ctx,
		`INSERT INTO household_members (id, household_id) VALUES ($1, $2)`, uuid.New(), h.ID)
	s.Require().NoError(err)

	s.ErrorIs(s.store.Delete(ctx, h.ID), sentinel.ErrProtected)

	// Still present.
	n, err := s.store.Count(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1, n)

	// Once the member is gone the household can be removed.
	_, err = s.postgres.DB.ExecContext(ctx, `DELETE FROM household_members WHERE household_id = $1`, h.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Delete(ctx, h.ID))
	s.ErrorIs(s.store.Delete(ctx, h.ID), sentinel.ErrNotFound)
}
