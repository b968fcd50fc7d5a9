package models

import (
	"time"

	"presence/internal/verification"
)

// Decision is the gate's answer for one check-in attempt. A denial is a
// result, not an error.
type Decision struct {
	Allowed   bool
	Reason    verification.Reason
	Remaining int
	// RetryAt is when the subject may try again; zero when allowed.
	RetryAt time.Time
}

// Allow builds an allowing decision.
func Allow(remaining int) *Decision {
	return &Decision{Allowed: true, Remaining: remaining}
}

// Deny builds a denying decision.
func Deny(reason verification.Reason, retryAt time.Time) *Decision {
	return &Decision{Allowed: false, Reason: reason, RetryAt: retryAt}
}

// RetryAfter is the whole seconds until RetryAt, never negative.
func (d *Decision) RetryAfter(now time.Time) int {
	if d.RetryAt.IsZero() {
		return 0
	}
	secs := int(d.RetryAt.Sub(now).Seconds())
	return max(secs, 0)
}
