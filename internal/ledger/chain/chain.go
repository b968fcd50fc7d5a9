// Package chain holds the pure hash-chain rules of the attendance ledger:
// canonical encoding, hashing, next-entry computation and verification.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"presence/internal/ledger/models"
	"presence/internal/verification"
	dErrors "presence/pkg/domain-errors"
)

const idSuffix = ":id"

// canonicalEntry fixes field order; toarray drops field names from the bytes.
type canonicalEntry struct {
	_            struct{} `cbor:",toarray"`
	UserID       string
	EventID      string
	Sequence     uint64
	PreviousHash string
	PayloadKind  string
	Payload      []byte
}

// Canonical returns the deterministic bytes that are hashed for an entry.
func Canonical(e *models.Entry) ([]byte, error) {
	kind, data, err := models.EncodePayload(e.Payload)
	if err != nil {
		return nil, err
	}
	return models.CanonicalCBOR(canonicalEntry{
		UserID:       e.UserID.String(),
		EventID:      e.EventID.String(),
		Sequence:     e.Sequence,
		PreviousHash: e.PreviousHash,
		PayloadKind:  string(kind),
		Payload:      data,
	})
}

// Hash returns the SHA-256 hex digest of the canonical bytes.
func Hash(e *models.Entry) (string, error) {
	b, err := Canonical(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// EntryID derives the entry id from its hash.
func EntryID(hash string) string {
	sum := sha256.Sum256([]byte(hash + idSuffix))
	return hex.EncodeToString(sum[:])
}

// ErrInvalidPreviousHash builds the integrity error for a claimed previous
// hash that does not match the head.
func ErrInvalidPreviousHash(detail string) error {
	return dErrors.Wrap(
		verification.Fail(verification.ReasonInvalidPreviousHash, detail),
		dErrors.CodeIntegrity,
		"previous hash does not match chain head",
	)
}

// Next computes the entry that extends head (nil for an empty chain).
// It never touches storage.
func Next(head *models.Entry, req models.AppendRequest, now time.Time) (*models.Entry, error) {
	if req.UserID.IsNil() || req.EventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user_id and event_id are required")
	}
	if req.Payload == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "payload is required")
	}

	var seq uint64 = 1
	if head == nil {
		if req.PreviousHash != "" {
			return nil, ErrInvalidPreviousHash("chain is empty")
		}
	} else {
		if head.UserID != req.UserID {
			return nil, dErrors.New(dErrors.CodeInternal, "head belongs to another user")
		}
		if req.PreviousHash != head.Hash {
			return nil, ErrInvalidPreviousHash(fmt.Sprintf("head is sequence %d", head.Sequence))
		}
		seq = head.Sequence + 1
	}

	entry := &models.Entry{
		UserID:       req.UserID,
		EventID:      req.EventID,
		Sequence:     seq,
		PreviousHash: req.PreviousHash,
		Payload:      req.Payload,
		RecordedAt:   now,
	}
	hash, err := Hash(entry)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "payload cannot be encoded")
	}
	entry.Hash = hash
	entry.ID = EntryID(hash)
	return entry, nil
}

// Verify walks entries (ascending by sequence) and returns a report naming
// the first broken link.
func Verify(entries []*models.Entry) *models.VerifyReport {
	report := &models.VerifyReport{Valid: true, Length: len(entries)}
	prevHash := ""
	for i, e := range entries {
		want := uint64(i + 1)
		switch {
		case e.Sequence != want:
			return broken(report, e, fmt.Sprintf("sequence %d, expected %d", e.Sequence, want))
		case e.PreviousHash != prevHash:
			return broken(report, e, "previous hash does not match prior entry")
		}
		hash, err := Hash(e)
		if err != nil {
			return broken(report, e, "payload cannot be encoded")
		}
		if hash != e.Hash {
			return broken(report, e, "hash does not match contents")
		}
		if EntryID(hash) != e.ID {
			return broken(report, e, "id does not match hash")
		}
		prevHash = e.Hash
	}
	report.HeadHash = prevHash
	return report
}

func broken(report *models.VerifyReport, e *models.Entry, reason string) *models.VerifyReport {
	report.Valid = false
	report.BrokenAt = e.Sequence
	report.Reason = reason
	return report
}
