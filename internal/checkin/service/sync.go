package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"presence/internal/checkin/models"
	"presence/internal/checkin/ports"
	ledgermodels "presence/internal/ledger/models"
	offlinemodels "presence/internal/offlinequeue/models"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/audit"
	"presence/pkg/requestcontext"
)

// Syncer accepts check-ins that a device verified while offline. The offline
// ticket stands in for the verification the server did not witness.
type Syncer struct {
	tickets        ports.TicketVerifier
	ledger         ports.SyncAppender
	participants   ports.ParticipantRecorder
	clockSkew      time.Duration
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
}

type SyncerOption func(*Syncer)

func WithSyncLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = logger
	}
}

func WithSyncAuditPublisher(publisher ports.AuditPublisher) SyncerOption {
	return func(s *Syncer) {
		s.auditPublisher = publisher
	}
}

func WithParticipants(p ports.ParticipantRecorder) SyncerOption {
	return func(s *Syncer) {
		s.participants = p
	}
}

func WithSyncClockSkew(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		s.clockSkew = d
	}
}

func NewSyncer(tickets ports.TicketVerifier, ledger ports.SyncAppender, opts ...SyncerOption) (*Syncer, error) {
	if tickets == nil || ledger == nil {
		return nil, errors.New("ticket verifier and ledger are required")
	}
	s := &Syncer{
		tickets:   tickets,
		ledger:    ledger,
		clockSkew: DefaultConfig().ClockSkew,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sync appends one queued check-in on top of the user's current head. An
// item that was already synced returns its existing entry with
// appended=false and nothing is recorded twice.
func (s *Syncer) Sync(ctx context.Context, item offlinemodels.QueuedCheckin) (entry *ledgermodels.Entry, appended bool, err error) {
	if item.UserID.IsNil() || item.EventID.IsNil() {
		return nil, false, dErrors.New(dErrors.CodeValidation, "user_id and event_id are required")
	}
	if item.ID == "" {
		return nil, false, dErrors.New(dErrors.CodeValidation, "id is required")
	}
	if _, err := models.ParseMethod(item.Method); err != nil {
		return nil, false, err
	}
	now := requestcontext.Now(ctx)
	if item.OccurredAt.IsZero() || item.OccurredAt.After(now.Add(s.clockSkew)) {
		return nil, false, dErrors.New(dErrors.CodeValidation, "occurred_at must not be in the future")
	}
	if err := s.tickets.Verify(item.Ticket, item.UserID, item.EventID, item.OccurredAt); err != nil {
		audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventCheckInFailed, audit.Event{
			UserID:   item.UserID,
			EventID:  item.EventID,
			Subject:  item.ID,
			Method:   item.Method,
			Decision: "rejected",
			Reason:   "invalid_ticket",
		})
		return nil, false, err
	}

	entry, appended, err = s.ledger.AppendSynced(ctx, item.UserID, item.EventID, ledgermodels.OfflineSyncPayload{
		QueueItemID:    item.ID,
		Method:         item.Method,
		OccurredAtMs:   item.OccurredAt.UnixMilli(),
		QueuedAtMs:     item.QueuedAt.UnixMilli(),
		SyncedAtMs:     now.UnixMilli(),
		RetryCount:     item.RetryCount,
		DistanceMeters: item.DistanceMeters,
		Device:         item.Device,
	})
	if err != nil {
		return nil, false, err
	}
	if !appended {
		s.logger.InfoContext(ctx, "queue item already synced", "item_id", item.ID, "sequence", entry.Sequence)
		return entry, false, nil
	}
	if s.participants != nil {
		if err := s.participants.RecordParticipant(ctx, item.EventID); err != nil {
			s.logger.WarnContext(ctx, "failed to count participant", "event_id", item.EventID.String(), "error", err)
		}
	}

	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventOfflineSynced, audit.Event{
		UserID:   item.UserID,
		EventID:  item.EventID,
		Subject:  item.ID,
		Method:   item.Method,
		Decision: "appended",
	}, "sequence", entry.Sequence, "retry_count", item.RetryCount)
	return entry, true, nil
}
