// Package actor identifies the acting user of a request.
//
// Authentication happens upstream (gateway or session layer); this middleware
// only trusts the forwarded X-User-ID header and rejects requests without one.
package actor

import (
	"log/slog"
	"net/http"

	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/httputil"
	"presence/pkg/requestcontext"
)

// HeaderUserID carries the authenticated user id.
const HeaderUserID = "X-User-ID"

// RequireUser parses X-User-ID into the request context.
func RequireUser(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := id.ParseUserID(r.Header.Get(HeaderUserID))
			if err != nil {
				if logger != nil {
					logger.WarnContext(r.Context(), "rejected request without acting user",
						"request_id", requestcontext.RequestID(r.Context()),
						"path", r.URL.Path,
					)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid "+HeaderUserID))
				return
			}
			ctx := requestcontext.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
