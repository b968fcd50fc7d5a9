// Package ports defines what the check-in coordinator needs from the rest of
// the system. The server wires local services; the agent wires HTTP clients
// and the device queue.
package ports

import (
	"context"
	"time"

	"presence/internal/checkin/models"
	eventmodels "presence/internal/event/models"
	ledgermodels "presence/internal/ledger/models"
	offlinemodels "presence/internal/offlinequeue/models"
	ratemodels "presence/internal/ratelimit/models"
	"presence/internal/verification/scantoken"
	id "presence/pkg/domain"
	"presence/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Gate is the abuse gate consulted before any verifier runs.
type Gate interface {
	Check(ctx context.Context, subject ratemodels.Subject) (*ratemodels.Decision, error)
	RecordFailure(ctx context.Context, subject ratemodels.Subject) error
	RecordSuccess(ctx context.Context, subject ratemodels.Subject) error
}

// EventDirectory resolves an event's venue and code context.
type EventDirectory interface {
	Get(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error)
}

// TokenDecoder turns a scanned string into a scan token.
type TokenDecoder interface {
	Decode(raw string) (scantoken.Token, error)
}

// RemoteLedger is the authoritative ledger. Network-layer failures wrap
// sentinel.ErrUnavailable; anything else is a rejection. Head returns nil for
// an empty chain. Append carries the attempt's evidence so the ledger's owner
// can check it again before writing.
type RemoteLedger interface {
	Head(ctx context.Context, userID id.UserID) (*ledgermodels.Entry, error)
	Append(ctx context.Context, req ledgermodels.AppendRequest, evidence models.Evidence) (*ledgermodels.Entry, error)
}

// OfflineQueue durably holds check-ins the ledger could not take.
type OfflineQueue interface {
	Enqueue(ctx context.Context, in offlinemodels.NewCheckin) (*offlinemodels.QueuedCheckin, error)
}

// TicketSource returns the offline ticket cached for an event.
type TicketSource interface {
	Get(ctx context.Context, eventID id.EventID) (*offlinemodels.StoredTicket, error)
}

type AuditPublisher = audit.Emitter

// TicketVerifier checks offline tickets presented at sync time.
type TicketVerifier interface {
	Verify(raw string, userID id.UserID, eventID id.EventID, occurredAt time.Time) error
}

// SyncAppender appends an offline check-in at most once per queue item.
// appended is false when the item was already on the chain.
type SyncAppender interface {
	AppendSynced(ctx context.Context, userID id.UserID, eventID id.EventID, payload ledgermodels.OfflineSyncPayload) (entry *ledgermodels.Entry, appended bool, err error)
}

// ParticipantRecorder counts attendees per event.
type ParticipantRecorder interface {
	RecordParticipant(ctx context.Context, eventID id.EventID) error
}
