package scantoken

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"presence/internal/verification"
)

// claims carries the token window in milliseconds. Registered time claims are
// left empty; only Validate decides validity.
type claims struct {
	EventID     string `json:"eid"`
	IssuedAtMs  int64  `json:"iat_ms"`
	ValidFromMs int64  `json:"nbf_ms"`
	ValidToMs   int64  `json:"exp_ms"`
	jwt.RegisteredClaims
}

// Codec signs and parses scan tokens as HS256 JWTs.
type Codec struct {
	key []byte
}

func NewCodec(signingKey string) (*Codec, error) {
	if signingKey == "" {
		return nil, errors.New("scan token signing key is required")
	}
	return &Codec{key: []byte(signingKey)}, nil
}

// Encode signs tok.
func (c *Codec) Encode(tok Token) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		EventID:     tok.EventID,
		IssuedAtMs:  tok.IssuedAtMs,
		ValidFromMs: tok.ValidFromMs,
		ValidToMs:   tok.ValidToMs,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: uuid.NewString(),
		},
	})
	return t.SignedString(c.key)
}

// Decode verifies the signature and returns the payload. Window checks are
// left to Validate.
func (c *Codec) Decode(raw string) (Token, error) {
	var cl claims
	parsed, err := jwt.ParseWithClaims(raw, &cl, func(token *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return Token{}, verification.Fail(verification.ReasonInvalidToken, "signature check failed")
	}
	return Token{
		EventID:     cl.EventID,
		IssuedAtMs:  cl.IssuedAtMs,
		ValidFromMs: cl.ValidFromMs,
		ValidToMs:   cl.ValidToMs,
	}, nil
}
