//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"presence/internal/event/models"
	"presence/internal/event/store/postgres"
	pgplatform "presence/internal/platform/postgres"
	"presence/internal/verification/geofence"
	id "presence/pkg/domain"
	"presence/pkg/platform/sentinel"
	"presence/pkg/testutil/containers"
)

type PostgresEventSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresEventSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresEventSuite))
}

func (s *PostgresEventSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(pgplatform.Migrate(context.Background(), s.postgres.DB))
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresEventSuite) TestSaveGetAndCounters() {
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	event := &models.Event{
		ID:              id.EventID(uuid.New()),
		OrganizerID:     id.UserID(uuid.New()),
		Name:            "Open air",
		Center:          geofence.Point{Lat: 48.8566, Lng: 2.3522},
		RadiusMeters:    150,
		CodeSecret:      "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
		CodeStepSeconds: 30,
		CodeDigits:      6,
		StartsAt:        start,
		EndsAt:          start.Add(4 * time.Hour),
	}
	s.Require().NoError(s.store.Save(ctx, event))
	s.Require().NoError(s.store.RecordParticipant(ctx, event.ID))
	s.Require().NoError(s.store.RecordParticipant(ctx, event.ID))
	s.Require().NoError(s.store.RecordEjection(ctx, event.ID))

	got, err := s.store.Get(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(event.Center, got.Center)
	s.Equal(event.OrganizerID, got.OrganizerID)
	s.Equal(2, got.Participants)
	s.Equal(1, got.Ejections)
	s.True(start.Equal(got.StartsAt))

	s.Require().NoError(s.store.Save(ctx, event), "re-saving keeps counters")
	got, err = s.store.Get(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(2, got.Participants)
}

func (s *PostgresEventSuite) TestEventWithoutOrganizer() {
	ctx := context.Background()
	event := &models.Event{
		ID:              id.EventID(uuid.New()),
		Name:            "Legacy",
		CodeSecret:      "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
		CodeStepSeconds: 30,
		CodeDigits:      6,
	}
	s.Require().NoError(s.store.Save(ctx, event))

	got, err := s.store.Get(ctx, event.ID)
	s.Require().NoError(err)
	s.True(got.OrganizerID.IsNil())
	s.False(got.IsOrganizer(id.UserID{}))
}

func (s *PostgresEventSuite) TestUnknownEvent() {
	ctx := context.Background()
	_, err := s.store.Get(ctx, id.EventID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.RecordEjection(ctx, id.EventID(uuid.New())), sentinel.ErrNotFound)
}
