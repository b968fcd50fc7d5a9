package testutil

import (
	"net/http"
	"time"

	id "presence/pkg/domain"
	"presence/pkg/platform/middleware/actor"
	"presence/pkg/requestcontext"
)

// AsUser sets the acting user the way an upstream gateway would,
// through the X-User-ID header.
func AsUser(req *http.Request, userID id.UserID) *http.Request {
	req.Header.Set(actor.HeaderUserID, userID.String())
	return req
}

// WithUser injects the acting user straight into the request context,
// for handlers exercised without the actor middleware.
func WithUser(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// AtTime pins the request clock.
func AtTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
