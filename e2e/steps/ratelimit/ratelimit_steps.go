package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"presence/e2e/steps/checkin"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	checkin.TestContext
	GetLastHeader(name string) string
}

// RegisterSteps registers abuse-gate and event risk step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	// Per-user cooldown after consecutive failures
	ctx.Step(`^I fail (\d+) geo check-ins from (\d+) meters away$`, steps.failGeoCheckIns)
	ctx.Step(`^the response should indicate a cooldown$`, steps.responseShouldIndicateCooldown)

	// Event-level ejection risk
	ctx.Step(`^(\d+) ejections? (?:is|are) recorded for the event$`, steps.recordEjections)
	ctx.Step(`^the event should be flagged as high risk$`, steps.eventShouldBeHighRisk)
	ctx.Step(`^I record an ejection for the event$`, steps.recordEjectionAsAttendee)
}

type ratelimitSteps struct {
	tc TestContext
}

func (s *ratelimitSteps) failGeoCheckIns(ctx context.Context, times, meters int) error {
	for i := 1; i <= times; i++ {
		if err := checkin.CheckInByGeo(s.tc, meters); err != nil {
			return err
		}
		if status := s.tc.GetLastResponseStatus(); status != 403 {
			return fmt.Errorf("attempt %d: expected 403, got %d: %s", i, status, s.tc.GetLastResponseBody())
		}
	}
	return nil
}

func (s *ratelimitSteps) responseShouldIndicateCooldown(ctx context.Context) error {
	if status := s.tc.GetLastResponseStatus(); status != 429 {
		return fmt.Errorf("expected 429, got %d: %s", status, s.tc.GetLastResponseBody())
	}
	reason, err := s.tc.GetResponseField("reason")
	if err != nil {
		return err
	}
	if reason != "cooldown" {
		return fmt.Errorf("expected reason cooldown, got %v", reason)
	}
	if s.tc.GetLastHeader("Retry-After") == "" {
		return fmt.Errorf("cooldown response is missing Retry-After")
	}
	return nil
}

func (s *ratelimitSteps) recordEjectionAsAttendee(ctx context.Context) error {
	return s.tc.POST("/events/"+s.tc.GetEventID()+"/ejections", nil)
}

func (s *ratelimitSteps) recordEjections(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := s.tc.AsOrganizer(func() error { return s.recordEjectionAsAttendee(ctx) }); err != nil {
			return err
		}
		if status := s.tc.GetLastResponseStatus(); status != 204 {
			return fmt.Errorf("record ejection returned %d: %s", status, s.tc.GetLastResponseBody())
		}
	}
	return nil
}

func (s *ratelimitSteps) eventShouldBeHighRisk(ctx context.Context) error {
	if err := s.tc.GET("/events/" + s.tc.GetEventID() + "/risk"); err != nil {
		return err
	}
	high, err := s.tc.GetResponseField("high_risk")
	if err != nil {
		return err
	}
	if high != true {
		return fmt.Errorf("expected high risk: %s", s.tc.GetLastResponseBody())
	}
	return nil
}
