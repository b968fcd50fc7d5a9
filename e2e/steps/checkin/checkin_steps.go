package checkin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// metersPerDegreeLat is close enough for offsets of a few hundred meters.
const metersPerDegreeLat = 111_320.0

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetEventID() string
	Load(key string) string
	AsOrganizer(fn func() error) error
}

// RegisterSteps registers check-in step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &checkinSteps{tc: tc}

	ctx.Step(`^I check in by geo (\d+) meters from the event center$`, steps.checkInByGeo)
	ctx.Step(`^I check in with the current event code$`, steps.checkInWithCurrentCode)
	ctx.Step(`^I check in with code "([^"]*)"$`, steps.checkInWithCode)
	ctx.Step(`^I check in with a fresh scan token$`, steps.checkInWithScanToken)
	ctx.Step(`^I check in with method "([^"]*)"$`, steps.checkInWithMethod)

	ctx.Step(`^I read the event code$`, steps.readEventCode)
	ctx.Step(`^I request a scan token$`, steps.requestScanToken)

	ctx.Step(`^the check-in state should be "([^"]*)"$`, steps.stateShouldBe)
	ctx.Step(`^the check-in reason should be "([^"]*)"$`, steps.reasonShouldBe)
	ctx.Step(`^the recorded entry sequence should be (\d+)$`, steps.entrySequenceShouldBe)
}

type checkinSteps struct {
	tc TestContext
}

func (s *checkinSteps) path() string {
	return "/events/" + s.tc.GetEventID() + "/checkins"
}

// GeoEvidence is a geo proof the given distance north of the event center.
// Shared with the ledger and rate-limit steps.
func GeoEvidence(load func(key string) string, meters int) (map[string]interface{}, error) {
	lat, err := strconv.ParseFloat(load("center_lat"), 64)
	if err != nil {
		return nil, fmt.Errorf("no event center recorded: %w", err)
	}
	lng, err := strconv.ParseFloat(load("center_lng"), 64)
	if err != nil {
		return nil, fmt.Errorf("no event center recorded: %w", err)
	}
	return map[string]interface{}{
		"method":   "geo",
		"location": map[string]float64{"lat": lat + float64(meters)/metersPerDegreeLat, "lng": lng},
	}, nil
}

// CheckInByGeo posts a geo check-in the given distance north of the center.
func CheckInByGeo(tc TestContext, meters int) error {
	body, err := GeoEvidence(tc.Load, meters)
	if err != nil {
		return err
	}
	return tc.POST("/events/"+tc.GetEventID()+"/checkins", body)
}

func (s *checkinSteps) checkInByGeo(ctx context.Context, meters int) error {
	return CheckInByGeo(s.tc, meters)
}

func (s *checkinSteps) readEventCode(ctx context.Context) error {
	return s.tc.GET("/events/" + s.tc.GetEventID() + "/code")
}

func (s *checkinSteps) requestScanToken(ctx context.Context) error {
	return s.tc.POST("/events/"+s.tc.GetEventID()+"/scan-tokens", nil)
}

func (s *checkinSteps) checkInWithCurrentCode(ctx context.Context) error {
	if err := s.tc.AsOrganizer(func() error { return s.readEventCode(ctx) }); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("read code returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	code, err := s.tc.GetResponseField("code")
	if err != nil {
		return err
	}
	return s.checkInWithCode(ctx, code.(string))
}

func (s *checkinSteps) checkInWithCode(ctx context.Context, code string) error {
	return s.tc.POST(s.path(), map[string]interface{}{"method": "code", "code": code})
}

func (s *checkinSteps) checkInWithScanToken(ctx context.Context) error {
	if err := s.tc.AsOrganizer(func() error { return s.requestScanToken(ctx) }); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("issue scan token returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	return s.tc.POST(s.path(), map[string]interface{}{"method": "qr", "token": token})
}

func (s *checkinSteps) checkInWithMethod(ctx context.Context, method string) error {
	return s.tc.POST(s.path(), map[string]interface{}{"method": method})
}

func (s *checkinSteps) stateShouldBe(ctx context.Context, expected string) error {
	return s.fieldShouldBe("state", expected)
}

func (s *checkinSteps) reasonShouldBe(ctx context.Context, expected string) error {
	return s.fieldShouldBe("reason", expected)
}

func (s *checkinSteps) fieldShouldBe(field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if value != expected {
		return fmt.Errorf("expected %s %q, got %v", field, expected, value)
	}
	return nil
}

// entrySequenceShouldBe accepts a check-in outcome (entry.sequence) or a bare
// ledger entry (sequence).
func (s *checkinSteps) entrySequenceShouldBe(ctx context.Context, expected int) error {
	value, err := s.tc.GetResponseField("entry.sequence")
	if err != nil {
		if value, err = s.tc.GetResponseField("sequence"); err != nil {
			return err
		}
	}
	if seq, ok := value.(float64); !ok || int(seq) != expected {
		return fmt.Errorf("expected sequence %d, got %v", expected, value)
	}
	return nil
}
