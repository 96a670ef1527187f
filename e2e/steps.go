package e2e

import (
	"github.com/cucumber/godog"

	"vetdesk/e2e/steps/registration"
	"vetdesk/e2e/world"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *world.TestContext) {
	registration.RegisterSteps(ctx, tc)
}
