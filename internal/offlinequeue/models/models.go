package models

import (
	"time"

	id "presence/pkg/domain"
)

// MaxRetries is the retry count at which an item stops being synced and is
// kept for manual reconciliation.
const MaxRetries = 5

// QueuedCheckin is a locally verified check-in waiting for the server.
type QueuedCheckin struct {
	ID             string     `json:"id"`
	UserID         id.UserID  `json:"user_id"`
	EventID        id.EventID `json:"event_id"`
	Method         string     `json:"method"`
	OccurredAt     time.Time  `json:"occurred_at"`
	Ticket         string     `json:"ticket,omitempty"`
	DistanceMeters float64    `json:"distance_meters,omitempty"`
	Device         string     `json:"device,omitempty"`
	QueuedAt       time.Time  `json:"queued_at"`
	RetryCount     int        `json:"retry_count"`
	LastError      string     `json:"last_error,omitempty"`
	NextAttemptAt  time.Time  `json:"next_attempt_at,omitzero"`
}

// Exhausted reports whether the item has used up its retries.
func (q *QueuedCheckin) Exhausted() bool {
	return q.RetryCount >= MaxRetries
}

// Due reports whether a failed item's backoff has elapsed at now.
func (q *QueuedCheckin) Due(now time.Time) bool {
	return q.NextAttemptAt.IsZero() || !now.Before(q.NextAttemptAt)
}

// NewCheckin is the caller-supplied part of a queued item.
type NewCheckin struct {
	UserID         id.UserID
	EventID        id.EventID
	Method         string
	OccurredAt     time.Time
	Ticket         string
	DistanceMeters float64
	Device         string
}

// StoredTicket is an offline ticket cached on the device for one event.
type StoredTicket struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Report summarizes one Process pass. Ran is false when another pass was
// already in flight.
type Report struct {
	Ran       bool
	Synced    int
	Failed    int
	Deferred  int
	Exhausted int
}
