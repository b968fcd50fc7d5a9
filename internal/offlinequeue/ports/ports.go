package ports

import (
	"context"

	"presence/internal/offlinequeue/models"
	"presence/pkg/platform/audit"
)

// Storage is durable string key/value storage on the device.
// Get returns sentinel.ErrNotFound for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// SyncFunc submits one queued item to the server. Errors wrapping
// sentinel.ErrUnavailable are transient; any error counts as a failed try.
type SyncFunc func(ctx context.Context, item models.QueuedCheckin) error

type AuditPublisher = audit.Emitter
