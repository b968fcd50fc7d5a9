package ports

import (
	"context"

	"presence/internal/event/models"
	id "presence/pkg/domain"
)

// Store persists events. Get, RecordEjection and RecordParticipant return
// sentinel.ErrNotFound for unknown events.
type Store interface {
	Get(ctx context.Context, eventID id.EventID) (*models.Event, error)
	Save(ctx context.Context, event *models.Event) error
	RecordEjection(ctx context.Context, eventID id.EventID) error
	RecordParticipant(ctx context.Context, eventID id.EventID) error
}
