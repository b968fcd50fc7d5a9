// Package verification defines the failure reasons shared by the
// proof-of-presence verifiers and the check-in coordinator.
package verification

import (
	"errors"
	"fmt"

	dErrors "presence/pkg/domain-errors"
)

// Reason names why a check-in was refused.
type Reason string

const (
	ReasonInvalidCoordinates  Reason = "invalid_coordinates"
	ReasonInvalidRadius       Reason = "invalid_radius"
	ReasonOutsideGeofence     Reason = "outside_geofence"
	ReasonInvalidCode         Reason = "invalid_code"
	ReasonInvalidRange        Reason = "invalid_range"
	ReasonNotYetValid         Reason = "not_yet_valid"
	ReasonExpired             Reason = "expired"
	ReasonEventMismatch       Reason = "event_mismatch"
	ReasonInvalidToken        Reason = "invalid_token"
	ReasonRateLimited         Reason = "rate_limited"
	ReasonCooldown            Reason = "cooldown"
	ReasonInvalidPreviousHash Reason = "invalid_previous_hash"
)

// Code maps the reason to the domain error code transports use.
func (r Reason) Code() dErrors.Code {
	switch r {
	case ReasonInvalidCoordinates, ReasonInvalidRadius, ReasonInvalidRange:
		return dErrors.CodeValidation
	case ReasonRateLimited, ReasonCooldown:
		return dErrors.CodeRateLimited
	case ReasonInvalidPreviousHash:
		return dErrors.CodeIntegrity
	default:
		return dErrors.CodeForbidden
	}
}

// Error is a failed verification. Pure verifiers return it; nothing is retried.
type Error struct {
	Reason Reason
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Fail builds a verification error.
func Fail(reason Reason, detail string) *Error {
	return &Error{Reason: reason, Detail: detail}
}

// ReasonOf extracts the reason from err, if it is (or wraps) a verification error.
func ReasonOf(err error) (Reason, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return "", false
}

// AsDomainError converts a verification error to a coded domain error.
func AsDomainError(err error) error {
	var ve *Error
	if errors.As(err, &ve) {
		return dErrors.Wrap(ve, ve.Reason.Code(), string(ve.Reason))
	}
	return err
}
