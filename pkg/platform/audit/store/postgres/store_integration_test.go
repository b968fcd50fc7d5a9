//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	pgplatform "presence/internal/platform/postgres"
	id "presence/pkg/domain"
	audit "presence/pkg/platform/audit"
	"presence/pkg/platform/audit/store/postgres"
	txcontext "presence/pkg/platform/tx"
	"presence/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(pgplatform.Migrate(context.Background(), s.postgres.DB))
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresAuditSuite) SetupTest() {
	_, err := s.postgres.DB.Exec("TRUNCATE audit_events")
	s.Require().NoError(err)
}

func (s *PostgresAuditSuite) TestAppendAndListInOrder() {
	ctx := context.Background()
	user := id.UserID(uuid.New())
	eventID := id.EventID(uuid.New())
	at := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: at,
		UserID:    user,
		EventID:   eventID,
		Subject:   user.String() + ":" + eventID.String() + ":geo",
		Action:    string(audit.EventCheckInFailed),
		Method:    "geo",
		Decision:  "denied",
		Reason:    "geo_out_of_range",
		RequestID: "req-1",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: at.Add(-time.Minute),
		UserID:    user,
		Action:    string(audit.EventCooldownTriggered),
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: at,
		UserID:    id.UserID(uuid.New()),
		Action:    string(audit.EventTicketIssued),
	}))

	events, err := s.store.ListByUser(ctx, user)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	first := events[0]
	s.Equal(string(audit.EventCheckInFailed), first.Action)
	s.Equal(audit.CategorySecurity, first.Category)
	s.True(at.Equal(first.Timestamp))
	s.Equal(eventID, first.EventID)
	s.Equal("geo_out_of_range", first.Reason)
	s.Equal("req-1", first.RequestID)

	second := events[1]
	s.Equal(string(audit.EventCooldownTriggered), second.Action, "append order wins over timestamps")
	s.Equal(audit.CategorySecurity, second.Category)
	s.True(second.EventID.IsNil())
}

func (s *PostgresAuditSuite) TestAppendJoinsTransaction() {
	ctx := context.Background()
	user := id.UserID(uuid.New())
	rollback := errors.New("rollback")

	err := txcontext.Run(ctx, s.postgres.DB, &sql.TxOptions{}, func(ctx context.Context) error {
		if err := s.store.Append(ctx, audit.Event{Timestamp: time.Now(), UserID: user, Action: string(audit.EventLedgerAppended)}); err != nil {
			return err
		}
		return rollback
	})
	s.Require().ErrorIs(err, rollback)

	events, err := s.store.ListByUser(ctx, user)
	s.Require().NoError(err)
	s.Empty(events, "a rolled back transaction takes its audit event with it")
}
