package rotatingcode

import (
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const derivedSecretBytes = 20

// DeriveEventSecret derives a per-event base32 secret from a master secret,
// so per-event secrets never need to be stored in plaintext configuration.
func DeriveEventSecret(master []byte, eventID string) (string, error) {
	if len(master) == 0 {
		return "", errors.New("master secret is required")
	}
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	r := hkdf.New(sha256.New, master, nil, []byte("presence/rotating-code/"+eventID))
	key := make([]byte, derivedSecretBytes)
	if _, err := io.ReadFull(r, key); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(key), nil
}
