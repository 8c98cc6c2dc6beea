package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "fieldplot/pkg/domain-errors"
)

// Status describes what surveyors found on the plot.
type Status string

const (
	StatusNonResidential          Status = "non_residential"
	StatusResidentialNotHabitable Status = "residential_not_habitable"
	StatusResidentialHabitable    Status = "residential_habitable"
	StatusInaccessible            Status = "inaccessible"
)

// Valid reports whether the status is one of the survey choices.
func (s Status) Valid() bool {
	switch s {
	case StatusNonResidential, StatusResidentialNotHabitable,
		StatusResidentialHabitable, StatusInaccessible:
		return true
	}
	return false
}

// Stratum is the random-sampling stratum a plot was drawn into.
type Stratum string

const (
	StratumTwentyPercent Stratum = "twenty_percent"
	StratumFivePercent   Stratum = "five_percent"
)

func (s Stratum) Valid() bool {
	return s == StratumTwentyPercent || s == StratumFivePercent
}

// Plot is the aggregate root: a physical land unit under survey.
//
// Invariants:
//   - PlotIdentifier is assigned exactly once at creation and never changes
//   - Target coordinates are immutable after creation
//   - HTC and RSS are mutually exclusive; ESS excludes HTC, RSS and Selected
//   - Enrolled requires EnrolledAt
//   - An enrolled plot can never be unconfirmed
//   - Household or eligible-member counts require confirmation coordinates
//   - HouseholdCount never exceeds the configured maximum
//
// Confirmed and Accessible are derived; they are recomputed on save and by
// log-entry side effects, never set directly by callers.
type Plot struct {
	ID             uuid.UUID `json:"id"`
	PlotIdentifier string    `json:"plot_identifier"`
	MapArea        string    `json:"map_area"`

	TargetLatitude     float64  `json:"target_latitude"`
	TargetLongitude    float64  `json:"target_longitude"`
	TargetRadius       float64  `json:"target_radius"`
	ConfirmedLatitude  *float64 `json:"confirmed_latitude,omitempty"`
	ConfirmedLongitude *float64 `json:"confirmed_longitude,omitempty"`
	DistanceFromTarget *float64 `json:"distance_from_target,omitempty"`

	HTC      bool     `json:"htc"`
	ESS      bool     `json:"ess"`
	RSS      bool     `json:"rss"`
	Selected *Stratum `json:"selected,omitempty"`

	Status          *Status `json:"status,omitempty"`
	HouseholdCount  int     `json:"household_count"`
	EligibleMembers int     `json:"eligible_members"`
	TimeOfWeek      *string `json:"time_of_week,omitempty"`
	TimeOfDay       *string `json:"time_of_day,omitempty"`

	Accessible     bool `json:"accessible"`
	AccessAttempts int  `json:"access_attempts"`

	Enrolled   bool       `json:"enrolled"`
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`

	LocationName string `json:"location_name,omitempty"`
	Description  string `json:"description,omitempty"`
	Comment      string `json:"comment,omitempty"`

	ReportDatetime time.Time `json:"report_datetime"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Confirmed reports whether both confirmation coordinates are present.
// Within-radius is enforced at save time, so persisted coordinates are
// always verified ones.
func (p *Plot) Confirmed() bool {
	return p.ConfirmedLatitude != nil && p.ConfirmedLongitude != nil
}

// Excluded reports whether the plot sits outside the normal survey track.
// Excluded plots get no plot log and cannot be confirmed.
func (p *Plot) Excluded() bool {
	return p.HTC && !p.ESS
}

// ApplyDerived recomputes flags the caller never sets directly. Call before
// every persist.
func (p *Plot) ApplyDerived(now time.Time) {
	p.RSS = p.Selected != nil &&
		(*p.Selected == StratumTwentyPercent || *p.Selected == StratumFivePercent)
	if p.Status != nil && *p.Status == StatusInaccessible {
		p.Accessible = false
	}
	if p.Excluded() {
		p.Accessible = false
	}
	p.UpdatedAt = now
}

// ValidateEnrollment enforces the classification and enrollment invariants.
// The error code depends on enrolled state, mirroring how field staff see
// the failure: a bad new plot versus a locked enrolled one.
func (p *Plot) ValidateEnrollment() error {
	if p.HTC && p.Selected != nil && p.Selected.Valid() {
		if p.Enrolled {
			return dErrors.New(dErrors.CodeEnrollmentLock,
				"plot cannot be enrolled: plot cannot be assigned to both HTC and RSS").
				WithFields("htc", "selected")
		}
		return dErrors.New(dErrors.CodeMutualExclusion,
			"plot cannot be assigned to both HTC and RSS").
			WithFields("htc", "selected")
	}
	if p.ESS && (p.HTC || p.RSS || p.Selected != nil) {
		return dErrors.New(dErrors.CodeMutualExclusion,
			"plot cannot be an ESS plot: check value of RSS, HTC or selected").
			WithFields("ess", "htc", "selected")
	}
	if p.HTC && !p.ESS && p.Enrolled {
		return dErrors.New(dErrors.CodeEnrollmentLock,
			"plot cannot be enrolled: plot is assigned to HTC").
			WithFields("htc", "enrolled")
	}
	if p.Enrolled && p.EnrolledAt == nil {
		return dErrors.New(dErrors.CodeValidation,
			"plot cannot be enrolled without an enrollment datetime").
			WithFields("enrolled_at")
	}
	return nil
}

// ValidateHouseholds enforces the count invariants against confirmation
// state and the configured maximum.
func (p *Plot) ValidateHouseholds(maxHouseholds int) error {
	if p.HouseholdCount > maxHouseholds {
		return dErrors.Newf(dErrors.CodeMaxHouseholds,
			"number of households per plot cannot exceed %d", maxHouseholds).
			WithFields("household_count")
	}
	if !p.Confirmed() {
		if p.HouseholdCount > 0 {
			return dErrors.Newf(dErrors.CodeHouseholdInvariant,
				"households cannot exist on an unconfirmed plot: got household count %d",
				p.HouseholdCount).
				WithFields("household_count")
		}
		if p.EligibleMembers > 0 {
			return dErrors.Newf(dErrors.CodeHouseholdInvariant,
				"households cannot exist on an unconfirmed plot: got eligible members %d",
				p.EligibleMembers).
				WithFields("eligible_members")
		}
	}
	return nil
}
