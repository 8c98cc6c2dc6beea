package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fieldplot/pkg/domain-errors"
)

func ptr[T any](v T) *T { return &v }

func TestApplyDerivedComputesRSS(t *testing.T) {
	now := time.Now()

	p := &Plot{Selected: ptr(StratumTwentyPercent), Accessible: true}
	p.ApplyDerived(now)
	assert.True(t, p.RSS)

	p = &Plot{Selected: ptr(StratumFivePercent), Accessible: true}
	p.ApplyDerived(now)
	assert.True(t, p.RSS)

	p = &Plot{Accessible: true}
	p.ApplyDerived(now)
	assert.False(t, p.RSS)
}

func TestApplyDerivedAccessibility(t *testing.T) {
	now := time.Now()

	p := &Plot{Status: ptr(StatusInaccessible), Accessible: true}
	p.ApplyDerived(now)
	assert.False(t, p.Accessible)

	// HTC plots outside ESS are excluded from the survey track.
	p = &Plot{HTC: true, Accessible: true}
	p.ApplyDerived(now)
	assert.False(t, p.Accessible)

	p = &Plot{HTC: true, ESS: true, Accessible: true}
	p.ApplyDerived(now)
	assert.True(t, p.Accessible)
}

func TestValidateEnrollmentMutualExclusion(t *testing.T) {
	// HTC and RSS cannot coexist; code depends on enrollment state.
	p := &Plot{HTC: true, Selected: ptr(StratumTwentyPercent)}
	err := p.ValidateEnrollment()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMutualExclusion))

	now := time.Now()
	p = &Plot{HTC: true, Selected: ptr(StratumTwentyPercent), Enrolled: true, EnrolledAt: &now}
	err = p.ValidateEnrollment()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEnrollmentLock))

	// ESS excludes everything else.
	p = &Plot{ESS: true, HTC: true}
	err = p.ValidateEnrollment()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMutualExclusion))

	p = &Plot{ESS: true, Selected: ptr(StratumFivePercent)}
	require.Error(t, p.ValidateEnrollment())

	// ESS alone is fine.
	p = &Plot{ESS: true}
	assert.NoError(t, p.ValidateEnrollment())

	// HTC alone is fine.
	p = &Plot{HTC: true}
	assert.NoError(t, p.ValidateEnrollment())
}

func TestValidateEnrollmentRequiresDatetime(t *testing.T) {
	p := &Plot{Enrolled: true}
	err := p.ValidateEnrollment()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, dErrors.FieldsOf(err), "enrolled_at")

	now := time.Now()
	p = &Plot{Enrolled: true, EnrolledAt: &now}
	assert.NoError(t, p.ValidateEnrollment())
}

func TestValidateHouseholds(t *testing.T) {
	lat, lon := -25.33, 25.55

	// Unconfirmed plots cannot carry counts.
	p := &Plot{HouseholdCount: 1}
	err := p.ValidateHouseholds(9)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeHouseholdInvariant))

	p = &Plot{EligibleMembers: 5}
	err = p.ValidateHouseholds(9)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeHouseholdInvariant))

	// Confirmed plots may, up to the maximum.
	p = &Plot{ConfirmedLatitude: &lat, ConfirmedLongitude: &lon, HouseholdCount: 9}
	assert.NoError(t, p.ValidateHouseholds(9))

	p.HouseholdCount = 10
	err = p.ValidateHouseholds(9)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMaxHouseholds))
}

func TestLogEntryValidate(t *testing.T) {
	// Accessible entries must not carry reasons.
	e := &PlotLogEntry{LogStatus: LogAccessible, Reason: ReasonDogs}
	require.Error(t, e.Validate())

	e = &PlotLogEntry{LogStatus: LogAccessible, ReasonOther: "gone fishing"}
	require.Error(t, e.Validate())

	e = &PlotLogEntry{LogStatus: LogAccessible}
	assert.NoError(t, e.Validate())

	// Inaccessible entries need a reason.
	e = &PlotLogEntry{LogStatus: LogInaccessible}
	require.Error(t, e.Validate())

	e = &PlotLogEntry{LogStatus: LogInaccessible, Reason: ReasonLockedGate}
	assert.NoError(t, e.Validate())

	// reason=other needs the free-text field, and vice versa.
	e = &PlotLogEntry{LogStatus: LogInaccessible, Reason: ReasonOther}
	require.Error(t, e.Validate())

	e = &PlotLogEntry{LogStatus: LogInaccessible, Reason: ReasonOther, ReasonOther: "flooding"}
	assert.NoError(t, e.Validate())

	e = &PlotLogEntry{LogStatus: LogInaccessible, Reason: ReasonDogs, ReasonOther: "flooding"}
	require.Error(t, e.Validate())

	e = &PlotLogEntry{LogStatus: LogStatus("unknown")}
	require.Error(t, e.Validate())
}

func TestApplyReportDate(t *testing.T) {
	loc := time.FixedZone("CAT", 2*3600)
	e := &PlotLogEntry{ReportDatetime: time.Date(2017, 5, 12, 1, 30, 0, 0, loc)}
	e.ApplyReportDate()

	// 01:30 CAT is 23:30 UTC the previous day.
	assert.Equal(t, time.Date(2017, 5, 11, 0, 0, 0, 0, time.UTC), e.ReportDate)
}

func TestStatusAndStratumValid(t *testing.T) {
	assert.True(t, StatusResidentialHabitable.Valid())
	assert.True(t, StatusInaccessible.Valid())
	assert.False(t, Status("condemned").Valid())

	assert.True(t, StratumTwentyPercent.Valid())
	assert.False(t, Stratum("half").Valid())
}
