//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fieldplot/internal/audit"
	"fieldplot/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
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
	s.store = audit.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_events")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestAppendAndListByPlot() {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	events := []audit.Event{
		{Timestamp: base, PlotIdentifier: "10000001", MapArea: "test_community", DeviceID: "99", Action: audit.ActionPlotCreated},
		{Timestamp: base.Add(time.Hour), PlotIdentifier: "10000001", MapArea: "test_community", DeviceID: "21", Action: audit.ActionPlotConfirmed, Detail: "distance 1.4m"},
		{Timestamp: base.Add(2 * time.Hour), PlotIdentifier: "10000002", MapArea: "test_community", DeviceID: "21", Action: audit.ActionPlotCreated},
	}
	for _, e := range events {
		s.Require().NoError(s.store.Append(ctx, e))
	}

	trail, err := s.store.ListByPlot(ctx, "10000001")
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(audit.ActionPlotCreated, trail[0].Action)
	s.Equal(audit.ActionPlotConfirmed, trail[1].Action)
	s.Equal("distance 1.4m", trail[1].Detail)
	s.True(trail[0].Timestamp.Before(trail[1].Timestamp))

	empty, err := s.store.ListByPlot(ctx, "10009999")
	s.Require().NoError(err)
	s.Empty(empty)
}
