package common

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastHeader(name string) string
	NewUser()
	AsOrganizer(fn func() error) error
	SetEventID(eventID string)
	Save(key, value string)
}

// RegisterSteps registers background and generic assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am a new attendee$`, steps.newAttendee)
	ctx.Step(`^an event at (-?[\d.]+),(-?[\d.]+) with a (\d+) meter radius$`, steps.createEvent)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the response should include a "([^"]*)" header$`, steps.responseShouldIncludeHeader)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) newAttendee(ctx context.Context) error {
	s.tc.NewUser()
	return nil
}

func (s *commonSteps) createEvent(ctx context.Context, lat, lng string, radius int) error {
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return err
	}
	lngF, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"name":     "e2e event",
		"center":   map[string]float64{"lat": latF, "lng": lngF},
		"radius_m": radius,
	}
	if err := s.tc.AsOrganizer(func() error { return s.tc.POST("/events", body) }); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("create event returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	eventID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetEventID(eventID.(string))
	s.tc.Save("center_lat", lat)
	s.tc.Save("center_lng", lng)
	return nil
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expected int) error {
	if actual := s.tc.GetLastResponseStatus(); actual != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, actual, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBe(ctx context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if actual := fmt.Sprint(value); actual != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, actual)
	}
	return nil
}

func (s *commonSteps) responseShouldIncludeHeader(ctx context.Context, name string) error {
	if s.tc.GetLastHeader(name) == "" {
		return fmt.Errorf("expected response header %s", name)
	}
	return nil
}
