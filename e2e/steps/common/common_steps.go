package common

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	LastStatus() int
	GetResponseField(field string) (any, error)
	SetRole(role string)
}

// RegisterSteps registers generic request and assertion step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the device role is "([^"]*)"$`, steps.setDeviceRole)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^the response status should be (\d+)$`, steps.assertStatus)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.assertFieldString)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.assertFieldBool)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, steps.assertFieldNumber)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) setDeviceRole(role string) error {
	s.tc.SetRole(role)
	return nil
}

func (s *commonSteps) get(path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) assertStatus(expected int) error {
	if s.tc.LastStatus() != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.tc.LastStatus())
	}
	return nil
}

func (s *commonSteps) assertFieldString(field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("expected %s=%q, got %v", field, expected, value)
	}
	return nil
}

func (s *commonSteps) assertFieldBool(field, expected string) error {
	return s.assertFieldString(field, expected)
}

func (s *commonSteps) assertFieldNumber(field string, expected int) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	num, ok := value.(float64)
	if !ok {
		return fmt.Errorf("field %s is not a number: %v", field, value)
	}
	if int(num) != expected {
		return fmt.Errorf("expected %s=%d, got %v", field, expected, num)
	}
	return nil
}
