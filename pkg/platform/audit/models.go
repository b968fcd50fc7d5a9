package audit

import (
	"time"

	id "presence/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events that change a user's attendance record.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to abuse monitoring.
	// Examples: repeated failed codes, cooldowns, broken hash chains.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	EventID   id.EventID
	Subject   string
	Action    string
	Method    string
	Decision  string
	Reason    string
	RequestID string
	ClientIP  string
	Device    string
}

type AuditEvent string

const (
	EventCheckInSucceeded   AuditEvent = "checkin_succeeded"
	EventCheckInFailed      AuditEvent = "checkin_failed"
	EventCheckInQueued      AuditEvent = "checkin_queued_offline"
	EventAttestationRefused AuditEvent = "attestation_refused"
	EventLedgerAppended     AuditEvent = "ledger_appended"
	EventLedgerConflict     AuditEvent = "ledger_conflict"
	EventLedgerVerifyFailed AuditEvent = "ledger_verify_failed"

	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
	EventCooldownTriggered AuditEvent = "cooldown_triggered"

	EventOfflineSynced    AuditEvent = "offline_synced"
	EventOfflineExhausted AuditEvent = "offline_retries_exhausted"

	EventTicketIssued     AuditEvent = "offline_ticket_issued"
	EventScanTokenIssued  AuditEvent = "scan_token_issued"
	EventRotatingCodeRead AuditEvent = "rotating_code_read"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCheckInSucceeded: CategoryCompliance,
	EventLedgerAppended:   CategoryCompliance,
	EventOfflineSynced:    CategoryCompliance,

	EventCheckInFailed:      CategorySecurity,
	EventAttestationRefused: CategorySecurity,
	EventLedgerConflict:     CategorySecurity,
	EventLedgerVerifyFailed: CategorySecurity,
	EventRateLimitExceeded:  CategorySecurity,
	EventCooldownTriggered:  CategorySecurity,
	EventOfflineExhausted:   CategorySecurity,

	EventCheckInQueued:    CategoryOperations,
	EventTicketIssued:     CategoryOperations,
	EventScanTokenIssued:  CategoryOperations,
	EventRotatingCodeRead: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
