package models

import (
	"time"

	ledgermodels "presence/internal/ledger/models"
	"presence/internal/verification"
	"presence/internal/verification/geofence"
	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
)

// Method is how an attendee proves presence.
type Method string

const (
	MethodGeo   Method = "geo"
	MethodCode  Method = "code"
	MethodToken Method = "qr"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodGeo, MethodCode, MethodToken:
		return m, nil
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "method is required")
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unsupported method "+s)
	}
}

// Evidence carries the method-specific proof. Only the field for the chosen
// method is read.
type Evidence struct {
	Location *geofence.Point
	Code     string
	Token    string
}

type Request struct {
	UserID   id.UserID
	EventID  id.EventID
	Method   Method
	Evidence Evidence
}

// Outcome is the terminal result of a check-in attempt.
type Outcome struct {
	State          State
	Method         Method
	Reason         verification.Reason
	Entry          *ledgermodels.Entry
	QueueItemID    string
	DistanceMeters float64
	Remaining      int
	RetryAt        time.Time
	History        []State
}
