//go:build integration

package plot_test

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
	"fieldplot/internal/plot/store/plot"
	"fieldplot/pkg/platform/sentinel"
	"fieldplot/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *plot.PostgresStore
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
	s.store = plot.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "household_members", "households", "plot_log_entries", "plot_logs", "plots")
	s.Require().NoError(err)
}

func newTestPlot(identifier string, lat float64) *models.Plot {
	now := time.Now().UTC().Truncate(time.Microsecond)
	status := models.StatusResidentialHabitable
	return &models.Plot{
		ID:              uuid.New(),
		PlotIdentifier:  identifier,
		MapArea:         "test_community",
		TargetLatitude:  lat,
		TargetLongitude: 25.556882,
		TargetRadius:    25.0,
		Status:          &status,
		Accessible:      true,
		ReportDatetime:  now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	p := newTestPlot("100000001", -25.330234)
	lat, lon, dist := -25.330240, 25.556885, 1.4
	p.ConfirmedLatitude = &lat
	p.ConfirmedLongitude = &lon
	p.DistanceFromTarget = &dist
	stratum := models.StratumTwentyPercent
	p.Selected = &stratum

	s.Require().NoError(s.store.Create(ctx, p))

	got, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.PlotIdentifier, got.PlotIdentifier)
	s.Require().NotNil(got.ConfirmedLatitude)
	s.InDelta(lat, *got.ConfirmedLatitude, 1e-9)
	s.Require().NotNil(got.Selected)
	s.Equal(models.StratumTwentyPercent, *got.Selected)
	s.Require().NotNil(got.Status)
	s.Equal(models.StatusResidentialHabitable, *got.Status)

	got, err = s.store.FindByIdentifier(ctx, "100000001")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)

	_, err = s.store.FindByID(ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCreateConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTestPlot("100000001", -25.330234)))

	dupeIdent := newTestPlot("100000001", -25.4)
	s.ErrorIs(s.store.Create(ctx, dupeIdent), sentinel.ErrConflict)

	dupeCoords := newTestPlot("100000002", -25.330234)
	s.ErrorIs(s.store.Create(ctx, dupeCoords), sentinel.ErrConflict)
}

// TestConcurrentIdentifierConflict verifies that racing inserts against the
// same identifier leave exactly one row behind.
func (s *PostgresStoreSuite) TestConcurrentIdentifierConflict() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := newTestPlot("100000099", -25.0-float64(i)*0.001)
			err := s.store.Create(ctx, p)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict error")
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	p := newTestPlot("100000001", -25.330234)
	s.Require().NoError(s.store.Create(ctx, p))

	lat, lon, dist := -25.330240, 25.556885, 1.4
	p.ConfirmedLatitude = &lat
	p.ConfirmedLongitude = &lon
	p.DistanceFromTarget = &dist
	p.HouseholdCount = 3
	p.AccessAttempts = 1
	p.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.Update(ctx, p))

	got, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(3, got.HouseholdCount)
	s.Require().NotNil(got.DistanceFromTarget)
	s.InDelta(dist, *got.DistanceFromTarget, 1e-9)

	missing := newTestPlot("100000042", -26.1)
	s.ErrorIs(s.store.Update(ctx, missing), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()
	confirmed := newTestPlot("100000002", -25.34)
	lat, lon := -25.34, 25.556885
	confirmed.ConfirmedLatitude = &lat
	confirmed.ConfirmedLongitude = &lon
	unconfirmed := newTestPlot("100000001", -25.35)
	unconfirmed.Accessible = false

	s.Require().NoError(s.store.Create(ctx, confirmed))
	s.Require().NoError(s.store.Create(ctx, unconfirmed))

	all, err := s.store.List(ctx, models.Filter{MapArea: "test_community"})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	// Ordered by identifier, newest allocation first.
	s.Equal("100000002", all[0].PlotIdentifier)

	yes := true
	onlyConfirmed, err := s.store.List(ctx, models.Filter{Confirmed: &yes})
	s.Require().NoError(err)
	s.Require().Len(onlyConfirmed, 1)
	s.Equal(confirmed.ID, onlyConfirmed[0].ID)

	accessible, err := s.store.List(ctx, models.Filter{Accessible: &yes})
	s.Require().NoError(err)
	s.Require().Len(accessible, 1)
	s.Equal(confirmed.ID, accessible[0].ID)
}
