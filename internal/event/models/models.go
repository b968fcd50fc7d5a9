package models

import (
	"time"

	"presence/internal/verification/geofence"
	"presence/internal/verification/rotatingcode"
	id "presence/pkg/domain"
)

// Event is a physical gathering attendees check in to. Only the organizer may
// display its code, mint scan tokens or record ejections.
type Event struct {
	ID              id.EventID
	OrganizerID     id.UserID
	Name            string
	Center          geofence.Point
	RadiusMeters    float64
	CodeSecret      string
	CodeStepSeconds int
	CodeDigits      int
	StartsAt        time.Time
	EndsAt          time.Time
	Participants    int
	Ejections       int
}

// IsOrganizer reports whether userID organizes e. An event without a
// recorded organizer has none.
func (e *Event) IsOrganizer(userID id.UserID) bool {
	return !e.OrganizerID.IsNil() && e.OrganizerID == userID
}

func (e *Event) CodeOptions() rotatingcode.Options {
	return rotatingcode.Options{StepSeconds: e.CodeStepSeconds, Digits: e.CodeDigits}
}

// CreateRequest describes a new event. An empty CodeSecret is derived from
// the server's master secret.
type CreateRequest struct {
	OrganizerID     id.UserID
	Name            string
	Center          geofence.Point
	RadiusMeters    float64
	CodeSecret      string
	CodeStepSeconds int
	CodeDigits      int
	StartsAt        time.Time
	EndsAt          time.Time
}
