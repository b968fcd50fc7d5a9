// Package service appends to and verifies per-user attendance chains.
package service

import (
	"context"
	"errors"
	"log/slog"

	"presence/internal/ledger/chain"
	"presence/internal/ledger/metrics"
	"presence/internal/ledger/models"
	"presence/internal/ledger/ports"
	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/audit"
	"presence/pkg/platform/sentinel"
	"presence/pkg/requestcontext"
)

// defaultHeadRetries bounds AppendOnHead when writers keep racing.
const defaultHeadRetries = 3

type Service struct {
	store          ports.Store
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	headRetries    int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithHeadRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.headRetries = n
		}
	}
}

func New(store ports.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	svc := &Service{
		store:       store,
		headRetries: defaultHeadRetries,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Append extends the user's chain when req.PreviousHash names the current
// head. A stale or fabricated hash, or a lost race, fails with an integrity
// error carrying verification.ReasonInvalidPreviousHash; the chain is left
// unchanged.
func (s *Service) Append(ctx context.Context, req models.AppendRequest) (*models.Entry, error) {
	head, err := s.Head(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	entry, err := chain.Next(head, req, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeIntegrity) {
			s.conflict(ctx, req, "stale_previous_hash")
		}
		return nil, err
	}

	if err := s.store.AppendIfMatches(ctx, entry, req.PreviousHash); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.conflict(ctx, req, "concurrent_append")
			return nil, chain.ErrInvalidPreviousHash("chain advanced concurrently")
		}
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.metrics.ObserveAppend(string(req.Payload.Kind()), "duplicate")
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "queue item already synced")
		}
		s.metrics.ObserveAppend(string(req.Payload.Kind()), "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append ledger entry")
	}

	s.metrics.ObserveAppend(string(entry.Payload.Kind()), "appended")
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventLedgerAppended, audit.Event{
		UserID:   entry.UserID,
		EventID:  entry.EventID,
		Subject:  entry.ID,
		Decision: "appended",
	}, "sequence", entry.Sequence, "kind", string(entry.Payload.Kind()))
	return entry.Clone(), nil
}

// AppendOnHead appends payload on top of whatever the head currently is.
// It serves writers that do not track the chain themselves, such as offline
// sync, and retries a bounded number of times when it loses a race.
func (s *Service) AppendOnHead(ctx context.Context, userID id.UserID, eventID id.EventID, payload models.Payload) (*models.Entry, error) {
	var lastErr error
	for range s.headRetries {
		head, err := s.Head(ctx, userID)
		if err != nil {
			return nil, err
		}
		req := models.AppendRequest{UserID: userID, EventID: eventID, Payload: payload}
		if head != nil {
			req.PreviousHash = head.Hash
		}
		entry, err := s.Append(ctx, req)
		if err == nil {
			return entry, nil
		}
		if !dErrors.HasCode(err, dErrors.CodeIntegrity) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// AppendSynced appends an offline check-in at most once per queue item. A
// replayed item yields the entry already on the chain and appended=false.
func (s *Service) AppendSynced(ctx context.Context, userID id.UserID, eventID id.EventID, payload models.OfflineSyncPayload) (entry *models.Entry, appended bool, err error) {
	if payload.QueueItemID == "" {
		return nil, false, dErrors.New(dErrors.CodeValidation, "queue item id is required")
	}
	existing, err := s.findSynced(ctx, userID, payload.QueueItemID)
	if err != nil || existing != nil {
		return existing, false, err
	}

	entry, err = s.AppendOnHead(ctx, userID, eventID, payload)
	if err == nil {
		return entry, true, nil
	}
	if !errors.Is(err, sentinel.ErrAlreadyUsed) {
		return nil, false, err
	}
	// Lost a race against a concurrent sync of the same item.
	existing, ferr := s.findSynced(ctx, userID, payload.QueueItemID)
	if ferr != nil {
		return nil, false, ferr
	}
	if existing == nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Service) findSynced(ctx context.Context, userID id.UserID, queueItemID string) (*models.Entry, error) {
	entry, err := s.store.FindSynced(ctx, userID, queueItemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up synced entry")
	}
	return entry, nil
}

// Head returns the user's latest entry, or nil for an empty chain.
func (s *Service) Head(ctx context.Context, userID id.UserID) (*models.Entry, error) {
	head, err := s.store.Head(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger head")
	}
	return head, nil
}

// ListForUser returns the chain in ascending sequence order. Callers own the
// returned slice.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error) {
	entries, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ledger entries")
	}
	if entries == nil {
		entries = []*models.Entry{}
	}
	return entries, nil
}

// Verify recomputes the whole chain. A broken chain yields the report and an
// integrity error.
func (s *Service) Verify(ctx context.Context, userID id.UserID) (*models.VerifyReport, error) {
	entries, err := s.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	report := chain.Verify(entries)
	report.UserID = userID
	if report.Valid {
		return report, nil
	}

	s.metrics.IncrementVerifyFailures()
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventLedgerVerifyFailed, audit.Event{
		UserID:   userID,
		Decision: "broken",
		Reason:   report.Reason,
	}, "broken_at", report.BrokenAt)
	return report, dErrors.New(dErrors.CodeIntegrity, report.Reason)
}

func (s *Service) conflict(ctx context.Context, req models.AppendRequest, reason string) {
	kind := "unknown"
	if req.Payload != nil {
		kind = string(req.Payload.Kind())
	}
	s.metrics.ObserveAppend(kind, "conflict")
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventLedgerConflict, audit.Event{
		UserID:   req.UserID,
		EventID:  req.EventID,
		Decision: "rejected",
		Reason:   reason,
	})
}
