package e2e

import (
	"github.com/cucumber/godog"

	"presence/e2e/steps/checkin"
	"presence/e2e/steps/common"
	"presence/e2e/steps/ledger"
	"presence/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (attendee, event setup, generic assertions)
	common.RegisterSteps(ctx, tc)

	checkin.RegisterSteps(ctx, tc)
	ledger.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
