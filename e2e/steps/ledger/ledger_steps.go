package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	"presence/e2e/steps/checkin"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetEventID() string
	Save(key, value string)
	Load(key string) string
}

// RegisterSteps registers ledger, offline ticket and sync step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ledgerSteps{tc: tc}

	ctx.Step(`^I append a check-in note on my ledger head$`, steps.appendOnHead)
	ctx.Step(`^I append a check-in note with previous hash "([^"]*)"$`, steps.appendWithPreviousHash)
	ctx.Step(`^my ledger should have (\d+) entries$`, steps.ledgerShouldHaveEntries)
	ctx.Step(`^my ledger should verify$`, steps.ledgerShouldVerify)

	ctx.Step(`^I request an offline ticket for the event$`, steps.requestOfflineTicket)
	ctx.Step(`^I sync a queued geo check-in made just now$`, steps.syncQueuedCheckIn)
	ctx.Step(`^I sync a queued geo check-in without a ticket$`, steps.syncWithoutTicket)
	ctx.Step(`^I sync the same queued check-in again$`, steps.syncAgain)

	ctx.Step(`^I append a check-in note from (\d+) meters away$`, steps.appendFrom)
	ctx.Step(`^I request an offline ticket from (\d+) meters away$`, steps.requestTicketFrom)
}

type ledgerSteps struct {
	tc       TestContext
	lastSync map[string]interface{}
}

func (s *ledgerSteps) note() map[string]interface{} {
	return map[string]interface{}{
		"kind": "checkin",
		"data": map[string]interface{}{
			"method":         "geo",
			"occurred_at_ms": time.Now().UnixMilli(),
		},
	}
}

// body builds an append whose evidence is a geo proof from meters away.
func (s *ledgerSteps) body(meters int) (map[string]interface{}, error) {
	evidence, err := checkin.GeoEvidence(s.tc.Load, meters)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"payload": s.note(), "evidence": evidence}, nil
}

func (s *ledgerSteps) appendOnHead(ctx context.Context) error {
	return s.appendFrom(ctx, 10)
}

func (s *ledgerSteps) appendFrom(ctx context.Context, meters int) error {
	if err := s.tc.GET("/ledger/head"); err != nil {
		return err
	}
	body, err := s.body(meters)
	if err != nil {
		return err
	}
	switch status := s.tc.GetLastResponseStatus(); status {
	case 204:
	case 200:
		hash, err := s.tc.GetResponseField("hash")
		if err != nil {
			return err
		}
		body["previous_hash"] = hash
	default:
		return fmt.Errorf("read ledger head returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	return s.tc.POST("/events/"+s.tc.GetEventID()+"/ledger", body)
}

func (s *ledgerSteps) appendWithPreviousHash(ctx context.Context, previousHash string) error {
	body, err := s.body(10)
	if err != nil {
		return err
	}
	body["previous_hash"] = previousHash
	return s.tc.POST("/events/"+s.tc.GetEventID()+"/ledger", body)
}

func (s *ledgerSteps) ledgerShouldHaveEntries(ctx context.Context, expected int) error {
	if err := s.tc.GET("/ledger"); err != nil {
		return err
	}
	entries, err := s.tc.GetResponseField("entries")
	if err != nil {
		return err
	}
	list, ok := entries.([]interface{})
	if !ok {
		return fmt.Errorf("entries is not a list: %s", s.tc.GetLastResponseBody())
	}
	if len(list) != expected {
		return fmt.Errorf("expected %d ledger entries, got %d", expected, len(list))
	}
	return nil
}

func (s *ledgerSteps) ledgerShouldVerify(ctx context.Context) error {
	if err := s.tc.GET("/ledger/verify"); err != nil {
		return err
	}
	valid, err := s.tc.GetResponseField("valid")
	if err != nil {
		return err
	}
	if valid != true {
		return fmt.Errorf("ledger did not verify: %s", s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *ledgerSteps) requestTicketFrom(ctx context.Context, meters int) error {
	evidence, err := checkin.GeoEvidence(s.tc.Load, meters)
	if err != nil {
		return err
	}
	return s.tc.POST("/events/"+s.tc.GetEventID()+"/offline-tickets", evidence)
}

func (s *ledgerSteps) requestOfflineTicket(ctx context.Context) error {
	if err := s.requestTicketFrom(ctx, 10); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("issue offline ticket returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	ticket, err := s.tc.GetResponseField("ticket")
	if err != nil {
		return err
	}
	s.tc.Save("ticket", ticket.(string))
	return nil
}

func (s *ledgerSteps) syncQueuedCheckIn(ctx context.Context) error {
	return s.sync(s.tc.Load("ticket"))
}

func (s *ledgerSteps) syncWithoutTicket(ctx context.Context) error {
	return s.sync("")
}

func (s *ledgerSteps) syncAgain(ctx context.Context) error {
	return s.tc.POST("/sync", s.lastSync)
}

func (s *ledgerSteps) sync(ticket string) error {
	now := time.Now().UnixMilli()
	s.lastSync = map[string]interface{}{
		"id":             uuid.NewString(),
		"event_id":       s.tc.GetEventID(),
		"method":         "geo",
		"occurred_at_ms": now,
		"queued_at_ms":   now,
		"ticket":         ticket,
	}
	return s.tc.POST("/sync", s.lastSync)
}
