package models

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// PayloadKind tags the payload variant.
type PayloadKind string

const (
	KindCheckIn     PayloadKind = "checkin"
	KindOfflineSync PayloadKind = "offline_sync"
)

// Payload is the closed set of ledger payloads. Unknown kinds decode to
// OpaquePayload so newer entries still verify on older readers.
type Payload interface {
	Kind() PayloadKind
	isPayload()
}

// CheckInPayload records an online, verified check-in.
type CheckInPayload struct {
	Method         string  `cbor:"method" json:"method"`
	OccurredAtMs   int64   `cbor:"occurred_at_ms" json:"occurred_at_ms"`
	DistanceMeters float64 `cbor:"distance_m,omitempty" json:"distance_m,omitempty"`
	Device         string  `cbor:"device,omitempty" json:"device,omitempty"`
}

func (CheckInPayload) Kind() PayloadKind { return KindCheckIn }
func (CheckInPayload) isPayload()        {}

// OfflineSyncPayload records a check-in verified on a device while offline and
// synced later. QueueItemID names the device queue item; a user's chain holds
// at most one entry per item.
type OfflineSyncPayload struct {
	QueueItemID    string  `cbor:"queue_item_id,omitempty" json:"queue_item_id,omitempty"`
	Method         string  `cbor:"method" json:"method"`
	OccurredAtMs   int64   `cbor:"occurred_at_ms" json:"occurred_at_ms"`
	QueuedAtMs     int64   `cbor:"queued_at_ms" json:"queued_at_ms"`
	SyncedAtMs     int64   `cbor:"synced_at_ms" json:"synced_at_ms"`
	RetryCount     int     `cbor:"retry_count,omitempty" json:"retry_count,omitempty"`
	DistanceMeters float64 `cbor:"distance_m,omitempty" json:"distance_m,omitempty"`
	Device         string  `cbor:"device,omitempty" json:"device,omitempty"`
}

func (OfflineSyncPayload) Kind() PayloadKind { return KindOfflineSync }
func (OfflineSyncPayload) isPayload()        {}

// SyncKey returns the queue item ID an entry was synced from, or "".
func SyncKey(p Payload) string {
	if sp, ok := p.(OfflineSyncPayload); ok {
		return sp.QueueItemID
	}
	return ""
}

// OpaquePayload carries a payload of a kind this build does not know.
// Raw holds its canonical CBOR bytes unchanged.
type OpaquePayload struct {
	Type PayloadKind
	Raw  []byte
}

func (p OpaquePayload) Kind() PayloadKind { return p.Type }
func (OpaquePayload) isPayload()          {}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor dec mode: %v", err))
	}
}

// CanonicalCBOR encodes v with Core Deterministic Encoding.
func CanonicalCBOR(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// EncodePayload returns the payload kind and its canonical CBOR bytes.
func EncodePayload(p Payload) (PayloadKind, []byte, error) {
	if p == nil {
		return "", nil, fmt.Errorf("payload is required")
	}
	if op, ok := p.(OpaquePayload); ok {
		if op.Type == "" {
			return "", nil, fmt.Errorf("opaque payload kind is required")
		}
		return op.Type, append([]byte(nil), op.Raw...), nil
	}
	data, err := encMode.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return p.Kind(), data, nil
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(kind PayloadKind, data []byte) (Payload, error) {
	switch kind {
	case KindCheckIn:
		var p CheckInPayload
		if err := decMode.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode checkin payload: %w", err)
		}
		return p, nil
	case KindOfflineSync:
		var p OfflineSyncPayload
		if err := decMode.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode offline_sync payload: %w", err)
		}
		return p, nil
	default:
		if err := cbor.Wellformed(data); err != nil {
			return nil, fmt.Errorf("decode %s payload: malformed cbor: %w", kind, err)
		}
		return OpaquePayload{Type: kind, Raw: append([]byte(nil), data...)}, nil
	}
}

// payloadJSON is the wire envelope: known kinds carry "data", unknown kinds
// carry their CBOR bytes in "raw" (base64).
type payloadJSON struct {
	Kind PayloadKind     `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
	Raw  []byte          `json:"raw,omitempty"`
}

// MarshalPayloadJSON renders p in the wire envelope.
func MarshalPayloadJSON(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	if op, ok := p.(OpaquePayload); ok {
		return json.Marshal(payloadJSON{Kind: op.Type, Raw: op.Raw})
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payloadJSON{Kind: p.Kind(), Data: data})
}

// UnmarshalPayloadJSON parses the wire envelope.
func UnmarshalPayloadJSON(b []byte) (Payload, error) {
	var env payloadJSON
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case KindCheckIn:
		var p CheckInPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode checkin payload: %w", err)
		}
		return p, nil
	case KindOfflineSync:
		var p OfflineSyncPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode offline_sync payload: %w", err)
		}
		return p, nil
	case "":
		return nil, fmt.Errorf("payload kind is required")
	default:
		return DecodePayload(env.Kind, env.Raw)
	}
}
