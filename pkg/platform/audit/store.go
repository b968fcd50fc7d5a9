package audit

import (
	"context"

	id "presence/pkg/domain"
)

// Store persists audit events for later querying.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Sink forwards audit events to an external system (a broker, a SIEM).
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
