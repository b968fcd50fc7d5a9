package handler

import (
	"net/http"

	"presence/internal/verification/rotatingcode"
	"presence/internal/verification/scantoken"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/audit"
	"presence/pkg/platform/httputil"
	"presence/pkg/requestcontext"
)

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "invalid create event request", err)
		return
	}
	event, err := h.svc.Events.Create(r.Context(), req.toModel(requestcontext.UserID(r.Context())))
	if err != nil {
		h.writeError(w, r, "failed to create event", err)
		return
	}
	h.logger.InfoContext(r.Context(), "event created",
		"event_id", event.ID.String(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
	httputil.WriteJSON(w, http.StatusCreated, toEventResponse(event))
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		h.writeError(w, r, "invalid event id", err)
		return
	}
	event, err := h.svc.Events.Get(r.Context(), eventID)
	if err != nil {
		h.writeError(w, r, "failed to load event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *Handler) handleRisk(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		h.writeError(w, r, "invalid event id", err)
		return
	}
	event, err := h.svc.Events.Get(r.Context(), eventID)
	if err != nil {
		h.writeError(w, r, "failed to load event", err)
		return
	}
	risk, err := h.svc.Events.Risk(r.Context(), eventID)
	if err != nil {
		h.writeError(w, r, "failed to compute risk", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RiskResponse{
		EventID:      eventID.String(),
		Rate:         risk.Rate,
		HighRisk:     risk.HighRisk,
		Participants: event.Participants,
		Ejections:    event.Ejections,
	})
}

func (h *Handler) handleEjection(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		h.writeError(w, r, "invalid event id", err)
		return
	}
	if err := h.svc.Events.RecordEjection(r.Context(), eventID, requestcontext.UserID(r.Context())); err != nil {
		h.writeError(w, r, "failed to record ejection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCurrentCode serves the rotating code for the organizer's display.
// Nobody else may read it.
func (h *Handler) handleCurrentCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDParam(r)
	if err != nil {
		h.writeError(w, r, "invalid event id", err)
		return
	}
	event, err := h.svc.Events.Authorize(ctx, eventID, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(w, r, "code read refused", err)
		return
	}
	opts := event.CodeOptions()
	code, validUntil, err := rotatingcode.Current(event.CodeSecret, requestcontext.Now(ctx), opts)
	if err != nil {
		h.writeError(w, r, "failed to generate code", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code"))
		return
	}
	audit.LogAudit(ctx, h.logger, h.auditPublisher, audit.EventRotatingCodeRead, audit.Event{
		UserID:  requestcontext.UserID(ctx),
		EventID: eventID,
		Method:  "code",
	})
	httputil.WriteJSON(w, http.StatusOK, CodeResponse{
		Code:         code,
		ValidUntilMs: validUntil.UnixMilli(),
		StepSeconds:  event.CodeStepSeconds,
		Digits:       event.CodeDigits,
	})
}

func (h *Handler) handleIssueScanToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.svc.ScanTokens == nil {
		h.writeError(w, r, "scan tokens disabled", dErrors.New(dErrors.CodeUnavailable, "scan tokens are not configured"))
		return
	}
	eventID, err := eventIDParam(r)
	if err != nil {
		h.writeError(w, r, "invalid event id", err)
		return
	}
	if _, err := h.svc.Events.Authorize(ctx, eventID, requestcontext.UserID(ctx)); err != nil {
		h.writeError(w, r, "scan token refused", err)
		return
	}
	tok := scantoken.New(eventID.String(), requestcontext.Now(ctx), h.scanTokenTTL)
	signed, err := h.svc.ScanTokens.Encode(tok)
	if err != nil {
		h.writeError(w, r, "failed to sign scan token", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign scan token"))
		return
	}
	audit.LogAudit(ctx, h.logger, h.auditPublisher, audit.EventScanTokenIssued, audit.Event{
		UserID:  requestcontext.UserID(ctx),
		EventID: eventID,
		Method:  "qr",
	}, "valid_to_ms", tok.ValidToMs)
	httputil.WriteJSON(w, http.StatusCreated, ScanTokenResponse{
		Token:       signed,
		ValidFromMs: tok.ValidFromMs,
		ValidToMs:   tok.ValidToMs,
	})
}
