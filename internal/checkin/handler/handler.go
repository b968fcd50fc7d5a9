// Package handler exposes check-in, ledger and event operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"presence/internal/checkin/models"
	"presence/internal/checkin/ticket"
	eventmodels "presence/internal/event/models"
	ledgermodels "presence/internal/ledger/models"
	offlinemodels "presence/internal/offlinequeue/models"
	"presence/internal/ratelimit/threshold"
	"presence/internal/verification/scantoken"
	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/audit"
	"presence/pkg/platform/httputil"
	"presence/pkg/platform/middleware/actor"
)

// DefaultScanTokenTTL is how long a displayed scan token stays valid.
const DefaultScanTokenTTL = 5 * time.Minute

type CheckInService interface {
	CheckIn(ctx context.Context, req models.Request) (*models.Outcome, error)
	// Attest runs the gate and the verifier without recording anything and
	// returns the measured distance for geo attempts.
	Attest(ctx context.Context, req models.Request) (float64, error)
}

type EventService interface {
	Create(ctx context.Context, req eventmodels.CreateRequest) (*eventmodels.Event, error)
	Get(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error)
	Authorize(ctx context.Context, eventID id.EventID, actor id.UserID) (*eventmodels.Event, error)
	RecordEjection(ctx context.Context, eventID id.EventID, actor id.UserID) error
	Risk(ctx context.Context, eventID id.EventID) (threshold.Risk, error)
}

type LedgerService interface {
	Append(ctx context.Context, req ledgermodels.AppendRequest) (*ledgermodels.Entry, error)
	Head(ctx context.Context, userID id.UserID) (*ledgermodels.Entry, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]*ledgermodels.Entry, error)
	Verify(ctx context.Context, userID id.UserID) (*ledgermodels.VerifyReport, error)
}

type SyncService interface {
	Sync(ctx context.Context, item offlinemodels.QueuedCheckin) (entry *ledgermodels.Entry, appended bool, err error)
}

type TicketIssuer interface {
	Issue(userID id.UserID, eventID id.EventID, now time.Time) (*ticket.Ticket, error)
}

type TokenEncoder interface {
	Encode(tok scantoken.Token) (string, error)
}

// Services groups the handler's collaborators.
type Services struct {
	CheckIns   CheckInService
	Events     EventService
	Ledger     LedgerService
	Syncer     SyncService
	Tickets    TicketIssuer
	ScanTokens TokenEncoder
}

type Handler struct {
	svc            Services
	logger         *slog.Logger
	auditPublisher audit.Emitter
	scanTokenTTL   time.Duration
}

type Option func(*Handler)

func WithAuditPublisher(publisher audit.Emitter) Option {
	return func(h *Handler) {
		h.auditPublisher = publisher
	}
}

func WithScanTokenTTL(ttl time.Duration) Option {
	return func(h *Handler) {
		if ttl > 0 {
			h.scanTokenTTL = ttl
		}
	}
}

func New(svc Services, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:          svc,
		logger:       logger,
		scanTokenTTL: DefaultScanTokenTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes. Every route needs an acting user; request id,
// client metadata and request time are expected from outer middleware.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(actor.RequireUser(h.logger))

		r.Post("/events", h.handleCreateEvent)
		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/", h.handleGetEvent)
			r.Post("/checkins", h.handleCheckIn)
			r.Post("/ledger", h.handleAppend)
			r.Post("/offline-tickets", h.handleIssueTicket)
			r.Post("/scan-tokens", h.handleIssueScanToken)
			r.Get("/code", h.handleCurrentCode)
			r.Get("/risk", h.handleRisk)
			r.Post("/ejections", h.handleEjection)
		})

		r.Post("/sync", h.handleSync)
		r.Get("/ledger", h.handleListLedger)
		r.Get("/ledger/head", h.handleHead)
		r.Get("/ledger/verify", h.handleVerify)
	})
}

// writeError logs server-side failures before mapping err to a response.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	code, ok := dErrors.CodeOf(err)
	if !ok || code == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
	} else {
		h.logger.WarnContext(r.Context(), msg, "path", r.URL.Path, "error", err)
	}
	httputil.WriteError(w, err)
}

func eventIDParam(r *http.Request) (id.EventID, error) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		return id.EventID{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid event id")
	}
	return eventID, nil
}
