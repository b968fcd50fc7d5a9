package handler

import (
	"encoding/json"
	"time"

	"presence/internal/checkin/models"
	eventmodels "presence/internal/event/models"
	ledgermodels "presence/internal/ledger/models"
	offlinemodels "presence/internal/offlinequeue/models"
	"presence/internal/verification/geofence"
	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
)

type CreateEventRequest struct {
	Name            string         `json:"name"`
	Center          geofence.Point `json:"center"`
	RadiusMeters    float64        `json:"radius_m"`
	CodeSecret      string         `json:"code_secret,omitempty"`
	CodeStepSeconds int            `json:"code_step_seconds,omitempty"`
	CodeDigits      int            `json:"code_digits,omitempty"`
	StartsAtMs      int64          `json:"starts_at_ms,omitempty"`
	EndsAtMs        int64          `json:"ends_at_ms,omitempty"`
}

func (r CreateEventRequest) toModel(organizer id.UserID) eventmodels.CreateRequest {
	return eventmodels.CreateRequest{
		OrganizerID:     organizer,
		Name:            r.Name,
		Center:          r.Center,
		RadiusMeters:    r.RadiusMeters,
		CodeSecret:      r.CodeSecret,
		CodeStepSeconds: r.CodeStepSeconds,
		CodeDigits:      r.CodeDigits,
		StartsAt:        fromMillis(r.StartsAtMs),
		EndsAt:          fromMillis(r.EndsAtMs),
	}
}

// EventResponse is the public profile of an event. The code secret never
// leaves the server.
type EventResponse struct {
	ID              string         `json:"id"`
	OrganizerID     string         `json:"organizer_id,omitempty"`
	Name            string         `json:"name"`
	Center          geofence.Point `json:"center"`
	RadiusMeters    float64        `json:"radius_m"`
	CodeStepSeconds int            `json:"code_step_seconds"`
	CodeDigits      int            `json:"code_digits"`
	StartsAtMs      int64          `json:"starts_at_ms,omitempty"`
	EndsAtMs        int64          `json:"ends_at_ms,omitempty"`
	Participants    int            `json:"participants"`
	Ejections       int            `json:"ejections"`
}

func toEventResponse(e *eventmodels.Event) EventResponse {
	resp := EventResponse{
		ID:              e.ID.String(),
		Name:            e.Name,
		Center:          e.Center,
		RadiusMeters:    e.RadiusMeters,
		CodeStepSeconds: e.CodeStepSeconds,
		CodeDigits:      e.CodeDigits,
		StartsAtMs:      toMillis(e.StartsAt),
		EndsAtMs:        toMillis(e.EndsAt),
		Participants:    e.Participants,
		Ejections:       e.Ejections,
	}
	if !e.OrganizerID.IsNil() {
		resp.OrganizerID = e.OrganizerID.String()
	}
	return resp
}

type CheckInRequest struct {
	Method   string          `json:"method"`
	Location *geofence.Point `json:"location,omitempty"`
	Code     string          `json:"code,omitempty"`
	Token    string          `json:"token,omitempty"`
}

// NewCheckInRequest is the agent-side inverse of toModel.
func NewCheckInRequest(req models.Request) CheckInRequest {
	return CheckInRequest{
		Method:   string(req.Method),
		Location: req.Evidence.Location,
		Code:     req.Evidence.Code,
		Token:    req.Evidence.Token,
	}
}

func (r CheckInRequest) toModel(userID id.UserID, eventID id.EventID) (models.Request, error) {
	method, err := models.ParseMethod(r.Method)
	if err != nil {
		return models.Request{}, err
	}
	return models.Request{
		UserID:  userID,
		EventID: eventID,
		Method:  method,
		Evidence: models.Evidence{
			Location: r.Location,
			Code:     r.Code,
			Token:    r.Token,
		},
	}, nil
}

type OutcomeResponse struct {
	State          string              `json:"state"`
	Method         string              `json:"method"`
	Reason         string              `json:"reason,omitempty"`
	Entry          *ledgermodels.Entry `json:"entry,omitempty"`
	QueueItemID    string              `json:"queue_item_id,omitempty"`
	DistanceMeters float64             `json:"distance_m,omitempty"`
	Remaining      int                 `json:"remaining"`
	RetryAtMs      int64               `json:"retry_at_ms,omitempty"`
	History        []string            `json:"history"`
}

func toOutcomeResponse(o *models.Outcome) OutcomeResponse {
	history := make([]string, 0, len(o.History))
	for _, s := range o.History {
		history = append(history, string(s))
	}
	return OutcomeResponse{
		State:          string(o.State),
		Method:         string(o.Method),
		Reason:         string(o.Reason),
		Entry:          o.Entry,
		QueueItemID:    o.QueueItemID,
		DistanceMeters: o.DistanceMeters,
		Remaining:      o.Remaining,
		RetryAtMs:      toMillis(o.RetryAt),
		History:        history,
	}
}

// AppendRequest is the remote ledger append an agent sends for the acting
// user. Payload uses the ledger's JSON envelope and must be a check-in made
// with the method Evidence proves.
type AppendRequest struct {
	PreviousHash string          `json:"previous_hash,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	Evidence     CheckInRequest  `json:"evidence"`
}

// toModel returns the append and the attempt its evidence describes.
func (r AppendRequest) toModel(userID id.UserID, eventID id.EventID) (ledgermodels.AppendRequest, models.Request, error) {
	if len(r.Payload) == 0 {
		return ledgermodels.AppendRequest{}, models.Request{}, dErrors.New(dErrors.CodeValidation, "payload is required")
	}
	payload, err := ledgermodels.UnmarshalPayloadJSON(r.Payload)
	if err != nil {
		return ledgermodels.AppendRequest{}, models.Request{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid payload")
	}
	checkIn, ok := payload.(ledgermodels.CheckInPayload)
	if !ok {
		return ledgermodels.AppendRequest{}, models.Request{}, dErrors.New(dErrors.CodeValidation, "only checkin payloads can be appended")
	}
	attempt, err := r.Evidence.toModel(userID, eventID)
	if err != nil {
		return ledgermodels.AppendRequest{}, models.Request{}, dErrors.Wrap(err, dErrors.CodeValidation, "evidence is required")
	}
	if string(attempt.Method) != checkIn.Method {
		return ledgermodels.AppendRequest{}, models.Request{}, dErrors.New(dErrors.CodeValidation, "evidence method does not match the payload")
	}
	return ledgermodels.AppendRequest{
		UserID:       userID,
		EventID:      eventID,
		Payload:      checkIn,
		PreviousHash: r.PreviousHash,
	}, attempt, nil
}

type LedgerResponse struct {
	Entries []*ledgermodels.Entry `json:"entries"`
}

type TicketResponse struct {
	Ticket      string `json:"ticket"`
	ExpiresAtMs int64  `json:"expires_at_ms"`
}

type ScanTokenResponse struct {
	Token       string `json:"token"`
	ValidFromMs int64  `json:"valid_from_ms"`
	ValidToMs   int64  `json:"valid_to_ms"`
}

type CodeResponse struct {
	Code         string `json:"code"`
	ValidUntilMs int64  `json:"valid_until_ms"`
	StepSeconds  int    `json:"step_seconds"`
	Digits       int    `json:"digits"`
}

type RiskResponse struct {
	EventID      string  `json:"event_id"`
	Rate         float64 `json:"rate"`
	HighRisk     bool    `json:"high_risk"`
	Participants int     `json:"participants"`
	Ejections    int     `json:"ejections"`
}

// SyncRequest is one offline-queued check-in as the agent uploads it.
type SyncRequest struct {
	ID             string  `json:"id"`
	EventID        string  `json:"event_id"`
	Method         string  `json:"method"`
	OccurredAtMs   int64   `json:"occurred_at_ms"`
	QueuedAtMs     int64   `json:"queued_at_ms"`
	Ticket         string  `json:"ticket"`
	DistanceMeters float64 `json:"distance_m,omitempty"`
	Device         string  `json:"device,omitempty"`
	RetryCount     int     `json:"retry_count"`
}

// NewSyncRequest is the agent-side inverse of toModel.
func NewSyncRequest(item offlinemodels.QueuedCheckin) SyncRequest {
	return SyncRequest{
		ID:             item.ID,
		EventID:        item.EventID.String(),
		Method:         item.Method,
		OccurredAtMs:   toMillis(item.OccurredAt),
		QueuedAtMs:     toMillis(item.QueuedAt),
		Ticket:         item.Ticket,
		DistanceMeters: item.DistanceMeters,
		Device:         item.Device,
		RetryCount:     item.RetryCount,
	}
}

func (r SyncRequest) toModel(userID id.UserID) (offlinemodels.QueuedCheckin, error) {
	eventID, err := id.ParseEventID(r.EventID)
	if err != nil {
		return offlinemodels.QueuedCheckin{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid event_id")
	}
	if r.OccurredAtMs <= 0 {
		return offlinemodels.QueuedCheckin{}, dErrors.New(dErrors.CodeValidation, "occurred_at_ms is required")
	}
	return offlinemodels.QueuedCheckin{
		ID:             r.ID,
		UserID:         userID,
		EventID:        eventID,
		Method:         r.Method,
		OccurredAt:     fromMillis(r.OccurredAtMs),
		QueuedAt:       fromMillis(r.QueuedAtMs),
		Ticket:         r.Ticket,
		DistanceMeters: r.DistanceMeters,
		Device:         r.Device,
		RetryCount:     r.RetryCount,
	}, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
