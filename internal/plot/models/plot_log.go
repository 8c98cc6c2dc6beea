package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "fieldplot/pkg/domain-errors"
)

// LogStatus records the outcome of one visit attempt.
type LogStatus string

const (
	LogAccessible   LogStatus = "accessible"
	LogInaccessible LogStatus = "inaccessible"
)

func (s LogStatus) Valid() bool {
	return s == LogAccessible || s == LogInaccessible
}

// InaccessibilityReason choices; ReasonOther requires free text.
type InaccessibilityReason string

const (
	ReasonImpassableRoad InaccessibilityReason = "impassable_road"
	ReasonDogs           InaccessibilityReason = "dogs"
	ReasonLockedGate     InaccessibilityReason = "locked_gate"
	ReasonOther          InaccessibilityReason = "other"
)

func (r InaccessibilityReason) Valid() bool {
	switch r {
	case ReasonImpassableRoad, ReasonDogs, ReasonLockedGate, ReasonOther:
		return true
	}
	return false
}

// PlotLog anchors the sequence of access attempts for a plot. Exactly one
// exists per non-excluded plot, created by the system when the plot is
// first saved. Deletion is protected while entries reference it.
type PlotLog struct {
	ID             uuid.UUID `json:"id"`
	PlotID         uuid.UUID `json:"plot_id"`
	ReportDatetime time.Time `json:"report_datetime"`
	CreatedAt      time.Time `json:"created_at"`
}

// PlotLogEntry is one visit/contact attempt against a plot log.
//
// Invariants:
//   - at most one entry per plot per UTC calendar day
//   - reason fields must be empty when the plot was accessible
//   - an inaccessible entry cannot be created against a confirmed plot
type PlotLogEntry struct {
	ID             uuid.UUID             `json:"id"`
	PlotLogID      uuid.UUID             `json:"plot_log_id"`
	ReportDatetime time.Time             `json:"report_datetime"`
	ReportDate     time.Time             `json:"report_date"`
	LogStatus      LogStatus             `json:"log_status"`
	Reason         InaccessibilityReason `json:"reason,omitempty"`
	ReasonOther    string                `json:"reason_other,omitempty"`
	Comment        string                `json:"comment,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// ApplyReportDate derives the UTC date used by the one-entry-per-day
// uniqueness constraint.
func (e *PlotLogEntry) ApplyReportDate() {
	utc := e.ReportDatetime.UTC()
	e.ReportDate = time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate enforces the field-level entry rules.
func (e *PlotLogEntry) Validate() error {
	if !e.LogStatus.Valid() {
		return dErrors.New(dErrors.CodeValidation, "log status must be accessible or inaccessible").
			WithFields("log_status")
	}
	if e.LogStatus == LogAccessible {
		if e.Reason != "" {
			return dErrors.New(dErrors.CodeValidation, "reason is not required if plot is accessible").
				WithFields("reason")
		}
		if e.ReasonOther != "" {
			return dErrors.New(dErrors.CodeValidation, "other reason is not required if plot is accessible").
				WithFields("reason_other")
		}
		return nil
	}
	if e.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required if plot is inaccessible").
			WithFields("reason")
	}
	if !e.Reason.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown inaccessibility reason %q", e.Reason).
			WithFields("reason")
	}
	if e.Reason == ReasonOther && e.ReasonOther == "" {
		return dErrors.New(dErrors.CodeValidation, "please specify the other reason").
			WithFields("reason_other")
	}
	if e.Reason != ReasonOther && e.ReasonOther != "" {
		return dErrors.New(dErrors.CodeValidation, "other reason only applies when reason is other").
			WithFields("reason_other")
	}
	return nil
}
