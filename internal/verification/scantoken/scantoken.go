// Package scantoken validates the short-lived tokens an organizer displays
// as a scannable code. All instants are epoch milliseconds.
package scantoken

import (
	"time"

	"presence/internal/verification"
)

// DefaultClockSkew is tolerated on both sides of the validity window.
const DefaultClockSkew = 30 * time.Second

// Token is the decoded scan-token payload.
type Token struct {
	EventID     string `json:"event_id"`
	IssuedAtMs  int64  `json:"issued_at_ms"`
	ValidFromMs int64  `json:"valid_from_ms"`
	ValidToMs   int64  `json:"valid_to_ms"`
}

// New builds a token valid for ttl starting at issuedAt.
func New(eventID string, issuedAt time.Time, ttl time.Duration) Token {
	ms := issuedAt.UnixMilli()
	return Token{
		EventID:     eventID,
		IssuedAtMs:  ms,
		ValidFromMs: ms,
		ValidToMs:   ms + ttl.Milliseconds(),
	}
}

// Validate checks the token window against now with a symmetric skew.
// Both skewed bounds are inclusive.
func Validate(tok Token, now time.Time, skew time.Duration) error {
	if tok.ValidToMs < tok.ValidFromMs {
		return verification.Fail(verification.ReasonInvalidRange, "valid_to precedes valid_from")
	}
	nowMs := now.UnixMilli()
	skewMs := skew.Milliseconds()
	if nowMs < tok.ValidFromMs-skewMs {
		return verification.Fail(verification.ReasonNotYetValid, "")
	}
	if nowMs > tok.ValidToMs+skewMs {
		return verification.Fail(verification.ReasonExpired, "")
	}
	return nil
}

// ValidateFor is Validate plus a check that the token belongs to eventID.
func ValidateFor(tok Token, eventID string, now time.Time, skew time.Duration) error {
	if err := Validate(tok, now, skew); err != nil {
		return err
	}
	if tok.EventID != eventID {
		return verification.Fail(verification.ReasonEventMismatch, "token issued for another event")
	}
	return nil
}
