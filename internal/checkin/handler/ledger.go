package handler

import (
	"net/http"

	ledgermodels "presence/internal/ledger/models"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/httputil"
	"presence/pkg/requestcontext"
)

// handleAppend is the remote append agents call after verifying a check-in
// on the device. The server re-runs the attempt's evidence before the entry
// is written, and the claimed previous hash is checked against the head.
func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDParam(r)
	if err != nil {
		h.writeError(w, r, "invalid event id", err)
		return
	}
	var body AppendRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, "invalid append request", err)
		return
	}
	req, attempt, err := body.toModel(requestcontext.UserID(ctx), eventID)
	if err != nil {
		h.writeError(w, r, "invalid append request", err)
		return
	}
	distance, err := h.svc.CheckIns.Attest(ctx, attempt)
	if err != nil {
		h.writeError(w, r, "append evidence refused", err)
		return
	}
	payload := req.Payload.(ledgermodels.CheckInPayload)
	payload.DistanceMeters = distance
	req.Payload = payload

	entry, err := h.svc.Ledger.Append(ctx, req)
	if err != nil {
		h.writeError(w, r, "ledger append rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleHead(w http.ResponseWriter, r *http.Request) {
	head, err := h.svc.Ledger.Head(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, "failed to load ledger head", err)
		return
	}
	if head == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, head)
}

func (h *Handler) handleListLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Ledger.ListForUser(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, "failed to list ledger", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LedgerResponse{Entries: entries})
}

// handleVerify answers 409 with the report when the chain is broken.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Ledger.Verify(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		if report != nil && dErrors.HasCode(err, dErrors.CodeIntegrity) {
			httputil.WriteJSON(w, http.StatusConflict, report)
			return
		}
		h.writeError(w, r, "failed to verify ledger", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
