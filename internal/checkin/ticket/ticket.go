// Package ticket issues and checks offline tickets: signed permission for a
// user to sync check-ins for one event that happened before ExpiresAt.
package ticket

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/sentinel"
)

const issuer = "presence"

type claims struct {
	EventID string `json:"eid"`
	jwt.RegisteredClaims
}

// Ticket is an issued offline ticket.
type Ticket struct {
	Token     string    `json:"ticket"`
	ExpiresAt time.Time `json:"-"`
}

type Issuer struct {
	key []byte
	ttl time.Duration
}

func NewIssuer(signingKey string, ttl time.Duration) (*Issuer, error) {
	if signingKey == "" {
		return nil, errors.New("ticket signing key is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ticket ttl must be positive")
	}
	return &Issuer{key: []byte(signingKey), ttl: ttl}, nil
}

func (i *Issuer) Issue(userID id.UserID, eventID id.EventID, now time.Time) (*Ticket, error) {
	expiresAt := now.Add(i.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		EventID: eventID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := t.SignedString(i.key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign ticket")
	}
	return &Ticket{Token: signed, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// Verify checks raw was issued to userID for eventID and was valid at the
// moment the check-in occurred.
func (i *Issuer) Verify(raw string, userID id.UserID, eventID id.EventID, occurredAt time.Time) error {
	if raw == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "offline ticket is required")
	}
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(userID.String()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return occurredAt }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return dErrors.Wrap(fmt.Errorf("%w: %w", sentinel.ErrExpired, err), dErrors.CodeUnauthorized, "offline ticket was not valid when the check-in occurred")
		case errors.Is(err, jwt.ErrTokenInvalidSubject):
			return dErrors.New(dErrors.CodeForbidden, "offline ticket belongs to another user")
		default:
			return dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid offline ticket")
		}
	}
	if cl.EventID != eventID.String() {
		return dErrors.New(dErrors.CodeForbidden, "offline ticket belongs to another event")
	}
	return nil
}
