// Package dErrors provides coded domain errors for the plot lifecycle core.
//
// Every rejected operation carries a Code naming the violated rule and,
// where it helps the caller, the offending field(s). Stores never return
// these directly; they return pkg/platform/sentinel errors which services
// translate here.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation covers malformed or incomplete input.
	CodeValidation Code = "validation"
	// CodeInvariantViolation marks an entity-level invariant breach.
	CodeInvariantViolation Code = "invariant_violation"
	// CodePermissionDenied marks a role or device not authorized for the
	// attempted operation.
	CodePermissionDenied Code = "permission_denied"
	// CodeInvalidCommunity marks a map area outside the configured registry.
	CodeInvalidCommunity Code = "invalid_community"
	// CodeGeoMismatch marks confirmation coordinates outside the target radius.
	CodeGeoMismatch Code = "geo_mismatch"
	// CodeMutualExclusion marks conflicting classification flags (htc/rss/ess).
	CodeMutualExclusion Code = "mutual_exclusion"
	// CodeEnrollmentLock marks an attempt to unconfirm or reclassify an
	// enrolled plot.
	CodeEnrollmentLock Code = "enrollment_lock"
	// CodeHouseholdInvariant marks household/eligible-member counts on an
	// unconfirmed plot.
	CodeHouseholdInvariant Code = "household_invariant"
	// CodeMaxHouseholds marks a household count above the configured maximum.
	CodeMaxHouseholds Code = "max_households_exceeded"
	// CodeConflict marks a uniqueness violation surfaced to the caller,
	// e.g. a second log entry on the same calendar day.
	CodeConflict Code = "conflict"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a stable code and optional field attribution.
type Error struct {
	Code    Code
	Message string
	Fields  []string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while keeping the chain intact.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

// WithFields attaches the offending field names for display next to inputs.
func (e *Error) WithFields(fields ...string) *Error {
	e.Fields = append(e.Fields, fields...)
	return e
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.wrapped
		de = nil
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost domain-error code, or CodeInternal when err
// is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf returns the offending fields of the outermost domain error.
func FieldsOf(err error) []string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation, CodeInvariantViolation, CodeInvalidCommunity,
		CodeGeoMismatch, CodeMutualExclusion, CodeEnrollmentLock,
		CodeHouseholdInvariant, CodeMaxHouseholds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
