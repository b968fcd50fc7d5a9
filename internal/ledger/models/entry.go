package models

import (
	"encoding/json"
	"time"

	id "presence/pkg/domain"
)

// Entry is one immutable link of a user's attendance chain.
// PreviousHash is empty for the first entry.
type Entry struct {
	ID           string
	UserID       id.UserID
	EventID      id.EventID
	Sequence     uint64
	PreviousHash string
	Payload      Payload
	Hash         string
	RecordedAt   time.Time
}

// Clone returns a copy that shares no mutable memory with e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if op, ok := e.Payload.(OpaquePayload); ok {
		c.Payload = OpaquePayload{Type: op.Type, Raw: append([]byte(nil), op.Raw...)}
	}
	return &c
}

// AppendRequest asks to extend userID's chain. PreviousHash must equal the
// current head's hash, or be empty when the chain is empty.
type AppendRequest struct {
	UserID       id.UserID
	EventID      id.EventID
	Payload      Payload
	PreviousHash string
}

type entryJSON struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	EventID      string          `json:"event_id"`
	Sequence     uint64          `json:"sequence"`
	PreviousHash string          `json:"previous_hash,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	Hash         string          `json:"hash"`
	RecordedAtMs int64           `json:"recorded_at_ms"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	payload, err := MarshalPayloadJSON(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entryJSON{
		ID:           e.ID,
		UserID:       e.UserID.String(),
		EventID:      e.EventID.String(),
		Sequence:     e.Sequence,
		PreviousHash: e.PreviousHash,
		Payload:      payload,
		Hash:         e.Hash,
		RecordedAtMs: e.RecordedAt.UnixMilli(),
	})
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	userID, err := id.ParseUserID(raw.UserID)
	if err != nil {
		return err
	}
	eventID, err := id.ParseEventID(raw.EventID)
	if err != nil {
		return err
	}
	payload, err := UnmarshalPayloadJSON(raw.Payload)
	if err != nil {
		return err
	}
	*e = Entry{
		ID:           raw.ID,
		UserID:       userID,
		EventID:      eventID,
		Sequence:     raw.Sequence,
		PreviousHash: raw.PreviousHash,
		Payload:      payload,
		Hash:         raw.Hash,
		RecordedAt:   time.UnixMilli(raw.RecordedAtMs),
	}
	return nil
}

// VerifyReport summarizes a chain walk.
type VerifyReport struct {
	UserID id.UserID `json:"-"`
	Valid  bool      `json:"valid"`
	Length int       `json:"length"`
	// BrokenAt is the sequence of the first entry that fails verification.
	BrokenAt uint64 `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
	HeadHash string `json:"head_hash,omitempty"`
}
