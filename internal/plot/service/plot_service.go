package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fieldplot/internal/audit"
	"fieldplot/internal/geo"
	"fieldplot/internal/plot/models"
	"fieldplot/internal/policy"
	dErrors "fieldplot/pkg/domain-errors"
	"fieldplot/pkg/platform/sentinel"
	"fieldplot/pkg/requestcontext"
)

var tracer = otel.Tracer("fieldplot/plot")

// CreatePlot allocates an identifier, validates the candidate and persists
// it, then fires the creation side effects: plot log (non-excluded plots),
// first accessible entry (ESS plots) and household reconciliation.
func (s *Service) CreatePlot(ctx context.Context, req *models.CreatePlotRequest) (*models.Plot, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "CreatePlot",
		trace.WithAttributes(attribute.String("map_area", req.MapArea)))
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, spanErr(span, err)
	}

	role := policy.Role(requestcontext.DeviceRole(ctx))
	if !s.policy.ValidArea(req.MapArea) {
		return nil, spanErr(span, dErrors.Newf(dErrors.CodeInvalidCommunity,
			"%s is not a known community", req.MapArea).WithFields("map_area"))
	}
	if !s.policy.MayAdd(role, req.MapArea) {
		return nil, spanErr(span, dErrors.Newf(dErrors.CodePermissionDenied,
			"role %q may not add plots in %s", role, req.MapArea))
	}
	if role != policy.RoleCentralServer {
		// Field additions are supplemental enumeration plots only; the
		// random sample is seeded by the central server.
		if !req.ESS {
			return nil, spanErr(span, dErrors.New(dErrors.CodePermissionDenied,
				"field devices may only add ESS plots").WithFields("ess"))
		}
		if req.Status == nil || *req.Status != models.StatusResidentialHabitable {
			return nil, spanErr(span, dErrors.New(dErrors.CodeValidation,
				"a manually added plot must be residential habitable").WithFields("status"))
		}
	}
	if req.ConfirmedLatitude != nil && !req.ESS {
		return nil, spanErr(span, dErrors.New(dErrors.CodeValidation,
			"only ESS plots may be confirmed at creation").
			WithFields("confirmed_latitude", "confirmed_longitude"))
	}

	mapCode, ok := s.policy.MapCode(req.MapArea)
	if !ok {
		return nil, spanErr(span, dErrors.Newf(dErrors.CodeInvalidCommunity,
			"%s has no map code", req.MapArea).WithFields("map_area"))
	}
	if !s.policy.MayAllocateIdentifier(role, req.MapArea) {
		return nil, spanErr(span, dErrors.Newf(dErrors.CodePermissionDenied,
			"role %q may not allocate plot identifiers for %s", role, req.MapArea))
	}
	identifier, err := s.allocator.Allocate(ctx, mapCode)
	if err != nil {
		return nil, spanErr(span, dErrors.Wrap(err, dErrors.CodeInternal,
			"failed to allocate plot identifier"))
	}

	now := requestcontext.Now(ctx)
	radius := s.survey.TargetRadius
	if req.TargetRadius != nil {
		radius = *req.TargetRadius
	}
	reportDatetime := now
	if req.ReportDatetime != nil {
		reportDatetime = *req.ReportDatetime
	}

	p := &models.Plot{
		ID:              uuid.New(),
		PlotIdentifier:  identifier,
		MapArea:         req.MapArea,
		TargetLatitude:  req.TargetLatitude,
		TargetLongitude: req.TargetLongitude,
		TargetRadius:    radius,
		HTC:             req.HTC,
		ESS:             req.ESS,
		Selected:        req.Selected,
		Status:          req.Status,
		HouseholdCount:  req.HouseholdCount,
		EligibleMembers: req.EligibleMembers,
		TimeOfWeek:      req.TimeOfWeek,
		TimeOfDay:       req.TimeOfDay,
		Accessible:      true,
		LocationName:    req.LocationName,
		Description:     req.Description,
		Comment:         req.Comment,
		ReportDatetime:  reportDatetime,
		CreatedBy:       requestcontext.DeviceID(ctx),
		CreatedAt:       now,
	}
	if req.ConfirmedLatitude != nil {
		if err := s.confirmCoordinates(p, *req.ConfirmedLatitude, *req.ConfirmedLongitude); err != nil {
			return nil, spanErr(span, err)
		}
	}
	if err := p.ValidateEnrollment(); err != nil {
		return nil, spanErr(span, err)
	}
	if err := p.ValidateHouseholds(s.survey.MaxHouseholds); err != nil {
		return nil, spanErr(span, err)
	}
	p.ApplyDerived(now)

	if err := s.plots.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, spanErr(span, dErrors.New(dErrors.CodeConflict,
				"a plot already exists with this identifier or target coordinates"))
		}
		return nil, spanErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create plot"))
	}

	// Side effects run after the core write and never roll it back. A
	// failure here leaves a valid plot that heals on the next mutation.
	s.createSideEffects(ctx, p, now)

	s.logAudit(ctx, p, audit.ActionPlotCreated, fmt.Sprintf("status=%s", statusLabel(p.Status)))
	if p.Confirmed() {
		s.logAudit(ctx, p, audit.ActionPlotConfirmed, "")
	}
	if s.metrics != nil {
		s.metrics.IncrementPlotsCreated()
		if p.Confirmed() {
			s.metrics.IncrementPlotsConfirmed()
		}
		s.metrics.ObserveCreatePlot(start)
	}
	return p, nil
}

func (s *Service) createSideEffects(ctx context.Context, p *models.Plot, now time.Time) {
	if p.Excluded() {
		return
	}
	log := &models.PlotLog{
		ID:             uuid.New(),
		PlotID:         p.ID,
		ReportDatetime: now,
		CreatedAt:      now,
	}
	if err := s.logs.CreateLog(ctx, log); err != nil {
		if !errors.Is(err, sentinel.ErrConflict) {
			s.logger.Warn("plot log creation failed",
				"plot_identifier", p.PlotIdentifier, "error", err)
			return
		}
		existing, findErr := s.logs.FindLogByPlot(ctx, p.ID)
		if findErr != nil {
			s.logger.Warn("plot log lookup after conflict failed",
				"plot_identifier", p.PlotIdentifier, "error", findErr)
			return
		}
		log = existing
	}
	if p.ESS {
		entry := &models.PlotLogEntry{
			ID:             uuid.New(),
			PlotLogID:      log.ID,
			ReportDatetime: now,
			LogStatus:      models.LogAccessible,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		entry.ApplyReportDate()
		if err := s.logs.CreateEntry(ctx, entry); err != nil {
			if !errors.Is(err, sentinel.ErrConflict) {
				s.logger.Warn("initial log entry creation failed",
					"plot_identifier", p.PlotIdentifier, "error", err)
			}
		} else {
			p.AccessAttempts = 1
		}
	}
	changed := s.reconcileHouseholds(ctx, p)
	if changed || p.AccessAttempts > 0 {
		p.ApplyDerived(now)
		if err := s.plots.Update(ctx, p); err != nil {
			s.logger.Warn("plot side-effect update failed",
				"plot_identifier", p.PlotIdentifier, "error", err)
		}
	}
}

// UpdatePlot runs the full validation pipeline over a partial edit and
// persists the result, reconciling households when the count changed.
func (s *Service) UpdatePlot(ctx context.Context, id uuid.UUID, req *models.UpdatePlotRequest) (*models.Plot, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "UpdatePlot",
		trace.WithAttributes(attribute.String("plot_id", id.String())))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, spanErr(span, err)
	}
	role := policy.Role(requestcontext.DeviceRole(ctx))
	if !s.policy.MayChange(role) {
		return nil, spanErr(span, dErrors.Newf(dErrors.CodePermissionDenied,
			"role %q may not change plots", role))
	}

	unlock := s.locks.lock(id)
	defer unlock()

	p, err := s.plots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, spanErr(span, dErrors.New(dErrors.CodeNotFound, "plot not found"))
		}
		return nil, spanErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plot"))
	}
	if s.policy.SpecialLocation(p.LocationName) {
		return nil, spanErr(span, dErrors.Newf(dErrors.CodePermissionDenied,
			"%s is a reserved location and cannot be edited", p.LocationName))
	}

	entries, err := s.logs.ListEntriesByPlot(ctx, p.ID)
	if err != nil {
		return nil, spanErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load log entries"))
	}
	if !p.ESS && !hasOpenEntry(entries) {
		return nil, spanErr(span, dErrors.New(dErrors.CodeValidation,
			"add a plot log entry before updating this plot"))
	}

	candidate := *p
	wasConfirmed := p.Confirmed()
	previousCount := p.HouseholdCount
	applyPlotEdit(&candidate, req)

	if req.ClearConfirmation {
		if p.Enrolled {
			return nil, spanErr(span, dErrors.New(dErrors.CodeEnrollmentLock,
				"an enrolled plot cannot be unconfirmed").
				WithFields("confirmed_latitude", "confirmed_longitude"))
		}
		candidate.ConfirmedLatitude = nil
		candidate.ConfirmedLongitude = nil
		candidate.DistanceFromTarget = nil
	}
	if req.ConfirmedLatitude != nil {
		if err := s.confirmCoordinates(&candidate, *req.ConfirmedLatitude, *req.ConfirmedLongitude); err != nil {
			return nil, spanErr(span, err)
		}
	}

	if err := candidate.ValidateEnrollment(); err != nil {
		return nil, spanErr(span, err)
	}
	if err := candidate.ValidateHouseholds(s.survey.MaxHouseholds); err != nil {
		return nil, spanErr(span, err)
	}

	now := requestcontext.Now(ctx)
	candidate.Accessible = computeAccessible(&candidate, entries)
	candidate.ApplyDerived(now)
	if err := s.plots.Update(ctx, &candidate); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, spanErr(span, dErrors.New(dErrors.CodeNotFound, "plot not found"))
		}
		return nil, spanErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update plot"))
	}

	if candidate.HouseholdCount != previousCount || candidate.Confirmed() != wasConfirmed {
		if s.reconcileHouseholds(ctx, &candidate) {
			candidate.ApplyDerived(now)
			if err := s.plots.Update(ctx, &candidate); err != nil {
				s.logger.Warn("household count downgrade failed",
					"plot_identifier", candidate.PlotIdentifier, "error", err)
			}
		}
	}

	s.logAudit(ctx, &candidate, audit.ActionPlotUpdated, "")
	if !wasConfirmed && candidate.Confirmed() {
		s.logAudit(ctx, &candidate, audit.ActionPlotConfirmed, "")
		if s.metrics != nil {
			s.metrics.IncrementPlotsConfirmed()
		}
	}
	if wasConfirmed && !candidate.Confirmed() {
		s.logAudit(ctx, &candidate, audit.ActionPlotUnconfirmed, "")
	}
	if s.metrics != nil {
		s.metrics.ObserveUpdatePlot(start)
	}
	return &candidate, nil
}

// Enroll marks a plot enrolled on behalf of the downstream consent process.
func (s *Service) Enroll(ctx context.Context, id uuid.UUID, enrolledAt time.Time) (*models.Plot, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	p, err := s.plots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "plot not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plot")
	}
	if p.Enrolled {
		return p, nil
	}
	if p.Excluded() {
		return nil, dErrors.New(dErrors.CodeValidation,
			"an excluded plot cannot be enrolled").
			WithFields("htc", "ess")
	}
	if !p.Confirmed() {
		return nil, dErrors.New(dErrors.CodeValidation,
			"an unconfirmed plot cannot be enrolled").
			WithFields("confirmed_latitude", "confirmed_longitude")
	}
	p.Enrolled = true
	p.EnrolledAt = &enrolledAt
	if err := p.ValidateEnrollment(); err != nil {
		return nil, err
	}
	p.ApplyDerived(requestcontext.Now(ctx))
	if err := s.plots.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll plot")
	}
	s.logAudit(ctx, p, audit.ActionPlotEnrolled, "")
	if s.metrics != nil {
		s.metrics.IncrementPlotsEnrolled()
	}
	return p, nil
}

// GetPlot returns a plot by id.
func (s *Service) GetPlot(ctx context.Context, id uuid.UUID) (*models.Plot, error) {
	p, err := s.plots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "plot not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plot")
	}
	return p, nil
}

// GetPlotByIdentifier returns a plot by its survey identifier.
func (s *Service) GetPlotByIdentifier(ctx context.Context, identifier string) (*models.Plot, error) {
	p, err := s.plots.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "plot not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plot")
	}
	return p, nil
}

// ListPlots returns the filtered listboard projection.
func (s *Service) ListPlots(ctx context.Context, filter models.Filter) ([]*models.Plot, error) {
	plots, err := s.plots.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list plots")
	}
	return plots, nil
}

// confirmCoordinates verifies the field GPS against the target waypoint and
// writes the confirmation fields. Out-of-radius coordinates are a hard
// failure; prior state is untouched because callers validate on a copy.
func (s *Service) confirmCoordinates(p *models.Plot, lat, lon float64) error {
	point := geo.Point{Latitude: lat, Longitude: lon}
	target := geo.Point{Latitude: p.TargetLatitude, Longitude: p.TargetLongitude}
	distance := s.verifier.Distance(point, target)
	if !s.verifier.WithinRadius(point, target, p.TargetRadius) {
		return dErrors.Newf(dErrors.CodeGeoMismatch,
			"GPS is %.1fm from the target location; must be within %.0fm",
			distance, p.TargetRadius).
			WithFields("confirmed_latitude", "confirmed_longitude")
	}
	p.ConfirmedLatitude = &lat
	p.ConfirmedLongitude = &lon
	p.DistanceFromTarget = &distance
	return nil
}

func applyPlotEdit(p *models.Plot, req *models.UpdatePlotRequest) {
	if req.Status != nil {
		p.Status = req.Status
	}
	if req.HouseholdCount != nil {
		p.HouseholdCount = *req.HouseholdCount
	}
	if req.EligibleMembers != nil {
		p.EligibleMembers = *req.EligibleMembers
	}
	if req.TimeOfWeek != nil {
		p.TimeOfWeek = req.TimeOfWeek
	}
	if req.TimeOfDay != nil {
		p.TimeOfDay = req.TimeOfDay
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Comment != nil {
		p.Comment = *req.Comment
	}
	if req.HTC != nil {
		p.HTC = *req.HTC
	}
	if req.ESS != nil {
		p.ESS = *req.ESS
	}
	if req.Selected != nil {
		p.Selected = req.Selected
	}
	if req.ClearSelected {
		p.Selected = nil
	}
}

// hasOpenEntry reports whether at least one visit found the plot reachable.
func hasOpenEntry(entries []*models.PlotLogEntry) bool {
	for _, e := range entries {
		if e.LogStatus == models.LogAccessible {
			return true
		}
	}
	return false
}

func statusLabel(status *models.Status) string {
	if status == nil {
		return "unknown"
	}
	return string(*status)
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}
