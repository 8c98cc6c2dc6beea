package models

import (
	"strings"
	"time"

	dErrors "fieldplot/pkg/domain-errors"
)

// CreatePlotRequest carries the fields a caller may set when adding a plot.
// The identifier, RSS flag and derived state are never accepted from input.
type CreatePlotRequest struct {
	MapArea         string     `json:"map_area"`
	TargetLatitude  float64    `json:"target_latitude"`
	TargetLongitude float64    `json:"target_longitude"`
	TargetRadius    *float64   `json:"target_radius,omitempty"`
	HTC             bool       `json:"htc"`
	ESS             bool       `json:"ess"`
	Selected        *Stratum   `json:"selected,omitempty"`
	Status          *Status    `json:"status,omitempty"`
	HouseholdCount  int        `json:"household_count"`
	EligibleMembers int        `json:"eligible_members"`
	TimeOfWeek      *string    `json:"time_of_week,omitempty"`
	TimeOfDay       *string    `json:"time_of_day,omitempty"`
	LocationName    string     `json:"location_name,omitempty"`
	Description     string     `json:"description,omitempty"`
	Comment         string     `json:"comment,omitempty"`
	ReportDatetime  *time.Time `json:"report_datetime,omitempty"`

	// Confirmation coordinates on add are only accepted for ESS plots.
	ConfirmedLatitude  *float64 `json:"confirmed_latitude,omitempty"`
	ConfirmedLongitude *float64 `json:"confirmed_longitude,omitempty"`
}

func (r *CreatePlotRequest) Normalize() {
	r.MapArea = strings.TrimSpace(strings.ToLower(r.MapArea))
	r.LocationName = strings.TrimSpace(strings.ToLower(r.LocationName))
	r.Description = strings.TrimSpace(r.Description)
	r.Comment = strings.TrimSpace(r.Comment)
}

func (r *CreatePlotRequest) Validate() error {
	if r.MapArea == "" {
		return dErrors.New(dErrors.CodeValidation, "map area is required").
			WithFields("map_area")
	}
	if r.TargetLatitude == 0 && r.TargetLongitude == 0 {
		return dErrors.New(dErrors.CodeValidation, "target coordinates are required").
			WithFields("target_latitude", "target_longitude")
	}
	if r.TargetRadius != nil && *r.TargetRadius <= 0 {
		return dErrors.New(dErrors.CodeValidation, "target radius must be positive").
			WithFields("target_radius")
	}
	if r.Status != nil && !r.Status.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown plot status %q", *r.Status).
			WithFields("status")
	}
	if r.Selected != nil && !r.Selected.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown sampling stratum %q", *r.Selected).
			WithFields("selected")
	}
	if r.HouseholdCount < 0 {
		return dErrors.New(dErrors.CodeValidation, "household count cannot be negative").
			WithFields("household_count")
	}
	if r.EligibleMembers < 0 {
		return dErrors.New(dErrors.CodeValidation, "eligible members cannot be negative").
			WithFields("eligible_members")
	}
	if (r.ConfirmedLatitude == nil) != (r.ConfirmedLongitude == nil) {
		return dErrors.New(dErrors.CodeValidation,
			"confirmation coordinates must be provided together").
			WithFields("confirmed_latitude", "confirmed_longitude")
	}
	return nil
}

// UpdatePlotRequest carries a partial plot edit; nil means leave unchanged.
// ClearConfirmation distinguishes "clear the coordinates" from "no change".
type UpdatePlotRequest struct {
	Status             *Status  `json:"status,omitempty"`
	HouseholdCount     *int     `json:"household_count,omitempty"`
	EligibleMembers    *int     `json:"eligible_members,omitempty"`
	TimeOfWeek         *string  `json:"time_of_week,omitempty"`
	TimeOfDay          *string  `json:"time_of_day,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Comment            *string  `json:"comment,omitempty"`
	ConfirmedLatitude  *float64 `json:"confirmed_latitude,omitempty"`
	ConfirmedLongitude *float64 `json:"confirmed_longitude,omitempty"`
	ClearConfirmation  bool     `json:"clear_confirmation,omitempty"`
	HTC                *bool    `json:"htc,omitempty"`
	ESS                *bool    `json:"ess,omitempty"`
	Selected           *Stratum `json:"selected,omitempty"`
	ClearSelected      bool     `json:"clear_selected,omitempty"`
}

func (r *UpdatePlotRequest) Validate() error {
	if r.Status != nil && !r.Status.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown plot status %q", *r.Status).
			WithFields("status")
	}
	if r.Selected != nil && !r.Selected.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown sampling stratum %q", *r.Selected).
			WithFields("selected")
	}
	if r.HouseholdCount != nil && *r.HouseholdCount < 0 {
		return dErrors.New(dErrors.CodeValidation, "household count cannot be negative").
			WithFields("household_count")
	}
	if r.EligibleMembers != nil && *r.EligibleMembers < 0 {
		return dErrors.New(dErrors.CodeValidation, "eligible members cannot be negative").
			WithFields("eligible_members")
	}
	if (r.ConfirmedLatitude == nil) != (r.ConfirmedLongitude == nil) {
		return dErrors.New(dErrors.CodeValidation,
			"confirmation coordinates must be provided together").
			WithFields("confirmed_latitude", "confirmed_longitude")
	}
	if r.ClearConfirmation && r.ConfirmedLatitude != nil {
		return dErrors.New(dErrors.CodeValidation,
			"cannot set and clear confirmation coordinates in one request").
			WithFields("clear_confirmation")
	}
	return nil
}

// LogEntryRequest carries a visit attempt submission.
type LogEntryRequest struct {
	ReportDatetime *time.Time            `json:"report_datetime,omitempty"`
	LogStatus      LogStatus             `json:"log_status"`
	Reason         InaccessibilityReason `json:"reason,omitempty"`
	ReasonOther    string                `json:"reason_other,omitempty"`
	Comment        string                `json:"comment,omitempty"`
}

func (r *LogEntryRequest) Normalize() {
	r.LogStatus = LogStatus(strings.ToLower(strings.TrimSpace(string(r.LogStatus))))
	r.Reason = InaccessibilityReason(strings.ToLower(strings.TrimSpace(string(r.Reason))))
	r.ReasonOther = strings.TrimSpace(r.ReasonOther)
	r.Comment = strings.TrimSpace(r.Comment)
}

// Filter is the read-only projection over plots, mirroring the listboard
// facets field teams navigate by.
type Filter struct {
	MapArea           string
	Accessible        *bool
	Confirmed         *bool
	Enrolled          *bool
	ESS               *bool
	RSS               *bool
	HTC               *bool
	MinAccessAttempts *int
	PlotIdentifier    string
}
