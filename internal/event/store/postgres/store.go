package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"presence/internal/event/models"
	id "presence/pkg/domain"
	"presence/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	var (
		e         models.Event
		eid       uuid.UUID
		organizer uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organizer_id, name, center_lat, center_lng, radius_meters, code_secret, code_step_seconds, code_digits,
		       starts_at, ends_at, participants, ejections
		FROM events WHERE id = $1`, uuid.UUID(eventID)).Scan(
		&eid, &organizer, &e.Name, &e.Center.Lat, &e.Center.Lng, &e.RadiusMeters, &e.CodeSecret, &e.CodeStepSeconds, &e.CodeDigits,
		&e.StartsAt, &e.EndsAt, &e.Participants, &e.Ejections,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	e.ID = id.EventID(eid)
	if organizer.Valid {
		e.OrganizerID = id.UserID(organizer.UUID)
	}
	return &e, nil
}

// Save upserts the event. The organizer and the counters are kept on update.
func (s *Store) Save(ctx context.Context, e *models.Event) error {
	var organizer uuid.NullUUID
	if !e.OrganizerID.IsNil() {
		organizer = uuid.NullUUID{UUID: uuid.UUID(e.OrganizerID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, name, center_lat, center_lng, radius_meters, code_secret, code_step_seconds, code_digits,
		                    starts_at, ends_at, participants, ejections, organizer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			center_lat = EXCLUDED.center_lat,
			center_lng = EXCLUDED.center_lng,
			radius_meters = EXCLUDED.radius_meters,
			code_secret = EXCLUDED.code_secret,
			code_step_seconds = EXCLUDED.code_step_seconds,
			code_digits = EXCLUDED.code_digits,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at`,
		uuid.UUID(e.ID), e.Name, e.Center.Lat, e.Center.Lng, e.RadiusMeters, e.CodeSecret, e.CodeStepSeconds, e.CodeDigits,
		e.StartsAt.UTC(), e.EndsAt.UTC(), e.Participants, e.Ejections, organizer,
	)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func (s *Store) RecordEjection(ctx context.Context, eventID id.EventID) error {
	return s.increment(ctx, "ejections", eventID)
}

func (s *Store) RecordParticipant(ctx context.Context, eventID id.EventID) error {
	return s.increment(ctx, "participants", eventID)
}

func (s *Store) increment(ctx context.Context, column string, eventID id.EventID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET `+column+` = `+column+` + 1 WHERE id = $1`, uuid.UUID(eventID))
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
