// Package postgres persists audit events in the audit_events table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "presence/pkg/domain"
	audit "presence/pkg/platform/audit"
	txcontext "presence/pkg/platform/tx"
)

// Store implements audit.Store. Appends join a transaction carried in ctx,
// so an event can commit or roll back with the change it describes.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (
			id, category, occurred_at, user_id, event_id, subject, action,
			method, decision, reason, request_id, client_ip, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.New(),
		string(category),
		event.Timestamp,
		nullable(uuid.UUID(event.UserID)),
		nullable(uuid.UUID(event.EventID)),
		event.Subject,
		event.Action,
		event.Method,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByUser returns a user's events in the order they were appended.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, occurred_at, user_id, event_id, subject, action,
		       method, decision, reason, request_id, client_ip, device
		FROM audit_events
		WHERE user_id = $1
		ORDER BY seq`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			category string
			userID   uuid.NullUUID
			eventID  uuid.NullUUID
		)
		if err := rows.Scan(
			&category, &event.Timestamp, &userID, &eventID, &event.Subject, &event.Action,
			&event.Method, &event.Decision, &event.Reason, &event.RequestID, &event.ClientIP, &event.Device,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if userID.Valid {
			event.UserID = id.UserID(userID.UUID)
		}
		if eventID.Valid {
			event.EventID = id.EventID(eventID.UUID)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullable(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
