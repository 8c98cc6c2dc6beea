package e2e

import (
	"github.com/cucumber/godog"

	"fieldplot/e2e/steps/common"
	"fieldplot/e2e/steps/plots"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (device role, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register plot lifecycle steps
	plots.RegisterSteps(ctx, tc)
}
