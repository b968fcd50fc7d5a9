package handler

import (
	"net/http"
	"strconv"

	"presence/internal/checkin/models"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/audit"
	"presence/pkg/platform/httputil"
	"presence/pkg/requestcontext"
)

// handleCheckIn runs one attempt. Refusals still carry the outcome body so
// clients can show the reason and the remaining attempts.
func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDParam(r)
	if err != nil {
		h.writeError(w, r, "invalid event id", err)
		return
	}
	var body CheckInRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, "invalid check-in request", err)
		return
	}
	req, err := body.toModel(requestcontext.UserID(ctx), eventID)
	if err != nil {
		h.writeError(w, r, "invalid check-in request", err)
		return
	}

	outcome, err := h.svc.CheckIns.CheckIn(ctx, req)
	if err != nil {
		h.writeError(w, r, "check-in failed", err)
		return
	}

	status := http.StatusCreated
	switch outcome.State {
	case models.StateQueuedOffline:
		status = http.StatusAccepted
	case models.StateFailed:
		status = httputil.StatusFor(outcome.Reason.Code())
		if !outcome.RetryAt.IsZero() {
			secs := int(outcome.RetryAt.Sub(requestcontext.Now(ctx)).Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 0)))
		}
	}
	httputil.WriteJSON(w, status, toOutcomeResponse(outcome))
}

// handleIssueTicket grants an offline ticket to an attendee who proves
// presence with the same evidence a check-in takes.
func (h *Handler) handleIssueTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.svc.Tickets == nil {
		h.writeError(w, r, "offline tickets disabled", dErrors.New(dErrors.CodeUnavailable, "offline tickets are not configured"))
		return
	}
	eventID, err := eventIDParam(r)
	if err != nil {
		h.writeError(w, r, "invalid event id", err)
		return
	}
	var body CheckInRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, "invalid offline ticket request", err)
		return
	}
	userID := requestcontext.UserID(ctx)
	attempt, err := body.toModel(userID, eventID)
	if err != nil {
		h.writeError(w, r, "invalid offline ticket request", err)
		return
	}
	if _, err := h.svc.CheckIns.Attest(ctx, attempt); err != nil {
		h.writeError(w, r, "offline ticket evidence refused", err)
		return
	}
	t, err := h.svc.Tickets.Issue(userID, eventID, requestcontext.Now(ctx))
	if err != nil {
		h.writeError(w, r, "failed to issue offline ticket", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue offline ticket"))
		return
	}
	audit.LogAudit(ctx, h.logger, h.auditPublisher, audit.EventTicketIssued, audit.Event{
		UserID:  userID,
		EventID: eventID,
		Method:  string(attempt.Method),
	}, "expires_at_ms", t.ExpiresAt.UnixMilli())
	httputil.WriteJSON(w, http.StatusCreated, TicketResponse{
		Ticket:      t.Token,
		ExpiresAtMs: t.ExpiresAt.UnixMilli(),
	})
}

// handleSync accepts one offline-queued check-in for the acting user. A
// replayed item answers 200 with the entry it already produced.
func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body SyncRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, "invalid sync request", err)
		return
	}
	item, err := body.toModel(requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(w, r, "invalid sync request", err)
		return
	}
	entry, appended, err := h.svc.Syncer.Sync(ctx, item)
	if err != nil {
		h.writeError(w, r, "offline sync failed", err)
		return
	}
	status := http.StatusOK
	if appended {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, entry)
}
