package audit

import (
	"context"
	"log/slog"

	"presence/pkg/requestcontext"
)

// Emitter is the narrow publishing port services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// LogAudit logs an audit event through the structured logger and emits it to
// the publisher. Request id, client IP and time come from ctx when unset.
func LogAudit(ctx context.Context, logger *slog.Logger, emitter Emitter, action AuditEvent, event Event, attrList ...any) {
	event.Action = string(action)
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = action.Category()
	}

	if logger != nil {
		args := append([]any{}, attrList...)
		if !event.UserID.IsNil() {
			args = append(args, "user_id", event.UserID.String())
		}
		if !event.EventID.IsNil() {
			args = append(args, "event_id", event.EventID.String())
		}
		if event.Reason != "" {
			args = append(args, "reason", event.Reason)
		}
		if event.RequestID != "" {
			args = append(args, "request_id", event.RequestID)
		}
		args = append(args, "event", string(action), "log_type", "audit", "category", string(event.Category))
		logger.InfoContext(ctx, string(action), args...)
	}

	if emitter == nil {
		return
	}
	if err := emitter.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(action), "error", err)
	}
}
