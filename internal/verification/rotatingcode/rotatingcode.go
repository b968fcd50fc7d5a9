// Package rotatingcode generates and validates the time-based numeric codes
// shown on an organizer's screen (RFC 6238 TOTP, HMAC-SHA1).
package rotatingcode

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // RFC 6238 default; the secret is per-event and short-lived
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultStepSeconds = 30
	DefaultDigits      = 6
	DefaultTolerance   = 2

	maxDigits = 10
	hexPrefix = "hex:"
)

var (
	ErrInvalidSecret  = errors.New("invalid code secret")
	ErrInvalidOptions = errors.New("invalid code options")
)

var pow10 = [...]uint32{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000, 1_000_000_000}

// Options is the code context shared by generator and validator.
type Options struct {
	StepSeconds int
	Digits      int
}

// DefaultOptions returns 30 second steps and 6 digits.
func DefaultOptions() Options {
	return Options{StepSeconds: DefaultStepSeconds, Digits: DefaultDigits}
}

func (o Options) withDefaults() Options {
	if o.StepSeconds == 0 {
		o.StepSeconds = DefaultStepSeconds
	}
	if o.Digits == 0 {
		o.Digits = DefaultDigits
	}
	return o
}

func (o Options) validate() error {
	if o.StepSeconds < 1 {
		return fmt.Errorf("%w: step must be at least 1 second", ErrInvalidOptions)
	}
	if o.Digits < 1 || o.Digits > maxDigits {
		return fmt.Errorf("%w: digits must be in [1, %d]", ErrInvalidOptions, maxDigits)
	}
	return nil
}

// DecodeSecret decodes a base32 secret (padding optional, case-insensitive)
// or a hex secret prefixed with "hex:".
func DecodeSecret(secret string) ([]byte, error) {
	s := strings.TrimSpace(secret)
	if rest, ok := strings.CutPrefix(s, hexPrefix); ok {
		key, err := hex.DecodeString(rest)
		if err != nil || len(key) == 0 {
			return nil, ErrInvalidSecret
		}
		return key, nil
	}
	s = strings.ToUpper(strings.TrimRight(s, "="))
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidSecret
	}
	return key, nil
}

// Counter returns the time-step counter for t.
func Counter(t time.Time, stepSeconds int) int64 {
	stepMs := int64(stepSeconds) * 1000
	ms := t.UnixMilli()
	c := ms / stepMs
	if ms%stepMs != 0 && ms < 0 {
		c--
	}
	return c
}

// Generate returns the code for the step containing t, shifted by windowOffset steps.
func Generate(secret string, t time.Time, opts Options, windowOffset int64) (string, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return "", err
	}
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	return generate(key, Counter(t, opts.StepSeconds)+windowOffset, opts.Digits), nil
}

// Current returns the code for t and the instant it stops being current.
func Current(secret string, t time.Time, opts Options) (string, time.Time, error) {
	opts = opts.withDefaults()
	code, err := Generate(secret, t, opts, 0)
	if err != nil {
		return "", time.Time{}, err
	}
	next := (Counter(t, opts.StepSeconds) + 1) * int64(opts.StepSeconds) * 1000
	return code, time.UnixMilli(next), nil
}

// Validate reports whether code matches any step offset in
// [-(tolerance-1), +(tolerance-1)] around t. Tolerance 2 accepts the previous,
// current and next step. Malformed codes are rejected without hashing.
func Validate(secret, code string, t time.Time, opts Options, tolerance int) bool {
	opts = opts.withDefaults()
	if opts.validate() != nil || tolerance < 1 {
		return false
	}
	if !wellFormed(code, opts.Digits) {
		return false
	}
	key, err := DecodeSecret(secret)
	if err != nil {
		return false
	}

	counter := Counter(t, opts.StepSeconds)
	span := int64(tolerance - 1)
	matched := 0
	// Compare every candidate so timing does not reveal which step matched.
	for w := -span; w <= span; w++ {
		candidate := generate(key, counter+w, opts.Digits)
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
	}
	return matched == 1
}

func wellFormed(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func generate(key []byte, counter int64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	if digits < len(pow10) {
		bin %= pow10[digits]
	}
	return fmt.Sprintf("%0*d", digits, bin)
}
