package ports

import (
	"context"

	"presence/internal/ledger/models"
	id "presence/pkg/domain"
	"presence/pkg/platform/audit"
)

// AuditPublisher emits audit events for ledger writes and verification.
type AuditPublisher = audit.Emitter

// Store persists per-user hash chains.
//
// Error Contract:
//   - Head returns sentinel.ErrNotFound when the user has no entries
//   - AppendIfMatches returns sentinel.ErrConflict when the current head hash
//     differs from expectedPrevHash (empty meaning no head) or the sequence
//     is already taken
//   - AppendIfMatches returns sentinel.ErrAlreadyUsed when the entry carries a
//     sync key (see models.SyncKey) the user's chain already holds
//   - FindSynced returns sentinel.ErrNotFound when no entry carries the key
//   - Other errors indicate infrastructure failures
type Store interface {
	Head(ctx context.Context, userID id.UserID) (*models.Entry, error)
	AppendIfMatches(ctx context.Context, entry *models.Entry, expectedPrevHash string) error
	ListForUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error)
	FindSynced(ctx context.Context, userID id.UserID, queueItemID string) (*models.Entry, error)
}
