package plots

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PATCH(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	SetPlotID(id string)
	GetPlotID() string
	SetPlotIdentifier(s string)
	GetPlotIdentifier() string
	SetEntryID(id string)
	GetEntryID() string
}

// RegisterSteps registers plot lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &plotSteps{tc: tc}

	ctx.Step(`^a plot is created at \(([-0-9.]+), ([-0-9.]+)\) in "([^"]*)"$`, steps.createPlot)
	ctx.Step(`^plot creation is attempted at \(([-0-9.]+), ([-0-9.]+)\) in "([^"]*)"$`, steps.attemptCreatePlot)
	ctx.Step(`^I save the plot identifier$`, steps.savePlotIdentifier)
	ctx.Step(`^an accessible log entry is recorded$`, steps.recordAccessibleEntry)
	ctx.Step(`^the plot is confirmed at \(([-0-9.]+), ([-0-9.]+)\) with (\d+) households?$`, steps.confirmPlot)
	ctx.Step(`^I fetch the plot by its identifier$`, steps.fetchByIdentifier)
	ctx.Step(`^the plot is enrolled$`, steps.enrollPlot)
	ctx.Step(`^I attempt to clear the confirmation coordinates$`, steps.clearConfirmation)
}

type plotSteps struct {
	tc TestContext
}

func (s *plotSteps) createPlot(latStr, lonStr, mapArea string) error {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return fmt.Errorf("parse longitude: %w", err)
	}

	body := map[string]any{
		"map_area":         mapArea,
		"target_latitude":  lat,
		"target_longitude": lon,
		"selected":         "twenty_percent",
		"status":           "residential_habitable",
	}
	if err := s.tc.POST("/plots", body); err != nil {
		return err
	}

	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetPlotID(fmt.Sprintf("%v", id))
	return nil
}

// attemptCreatePlot submits the request without expecting success; the
// scenario asserts on the response afterwards.
func (s *plotSteps) attemptCreatePlot(latStr, lonStr, mapArea string) error {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return fmt.Errorf("parse longitude: %w", err)
	}
	return s.tc.POST("/plots", map[string]any{
		"map_area":         mapArea,
		"target_latitude":  lat,
		"target_longitude": lon,
		"status":           "residential_habitable",
	})
}

func (s *plotSteps) savePlotIdentifier() error {
	identifier, err := s.tc.GetResponseField("plot_identifier")
	if err != nil {
		return err
	}
	s.tc.SetPlotIdentifier(fmt.Sprintf("%v", identifier))
	return nil
}

func (s *plotSteps) recordAccessibleEntry() error {
	body := map[string]any{
		"log_status":      "accessible",
		"report_datetime": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.tc.POST("/plots/"+s.tc.GetPlotID()+"/log-entries", body); err != nil {
		return err
	}
	if id, err := s.tc.GetResponseField("id"); err == nil {
		s.tc.SetEntryID(fmt.Sprintf("%v", id))
	}
	return nil
}

func (s *plotSteps) confirmPlot(latStr, lonStr string, households int) error {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return fmt.Errorf("parse longitude: %w", err)
	}

	body := map[string]any{
		"confirmed_latitude":  lat,
		"confirmed_longitude": lon,
		"household_count":     households,
		"eligible_members":    households,
		"status":              "residential_habitable",
		"time_of_week":        "weekday",
		"time_of_day":         "morning",
	}
	return s.tc.PATCH("/plots/"+s.tc.GetPlotID(), body)
}

func (s *plotSteps) fetchByIdentifier() error {
	return s.tc.GET("/plots/" + s.tc.GetPlotIdentifier())
}

func (s *plotSteps) enrollPlot() error {
	return s.tc.POST("/plots/"+s.tc.GetPlotID()+"/enroll", map[string]any{})
}

func (s *plotSteps) clearConfirmation() error {
	return s.tc.PATCH("/plots/"+s.tc.GetPlotID(), map[string]any{"clear_confirmation": true})
}
