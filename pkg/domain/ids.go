// Package domain holds identifier types shared across modules.
package domain

import (
	"github.com/google/uuid"

	dErrors "presence/pkg/domain-errors"
)

// UserID identifies an attendee. Distinct from EventID at compile time.
type UserID uuid.UUID

// EventID identifies a physical event.
type EventID uuid.UUID

func (id UserID) String() string  { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EventID) String() string { return uuid.UUID(id).String() }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseUserID parses a non-nil UUID string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseEventID parses a non-nil UUID string into an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event_id")
	if err != nil {
		return EventID{}, err
	}
	return EventID(u), nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}

func (id UserID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid user_id")
	}
	*id = UserID(u)
	return nil
}

func (id EventID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EventID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid event_id")
	}
	*id = EventID(u)
	return nil
}
