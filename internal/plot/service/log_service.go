package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"fieldplot/internal/audit"
	"fieldplot/internal/plot/models"
	"fieldplot/internal/policy"
	dErrors "fieldplot/pkg/domain-errors"
	"fieldplot/pkg/platform/sentinel"
	"fieldplot/pkg/requestcontext"
)

// AddLogEntry records a visit attempt and feeds its outcome back into the
// parent plot: the attempt counter, the accessible flag and, for an
// inaccessible visit, the confirmation and household cascade.
func (s *Service) AddLogEntry(ctx context.Context, plotID uuid.UUID, req *models.LogEntryRequest) (*models.PlotLogEntry, error) {
	ctx, span := tracer.Start(ctx, "AddLogEntry")
	defer span.End()

	role := policy.Role(requestcontext.DeviceRole(ctx))
	if !s.policy.MayChange(role) {
		return nil, spanErr(span, dErrors.Newf(dErrors.CodePermissionDenied,
			"role %q may not record visit attempts", role))
	}

	unlock := s.locks.lock(plotID)
	defer unlock()

	p, err := s.plots.FindByID(ctx, plotID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, spanErr(span, dErrors.New(dErrors.CodeNotFound, "plot not found"))
		}
		return nil, spanErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plot"))
	}
	if p.Excluded() {
		return nil, spanErr(span, dErrors.New(dErrors.CodeValidation,
			"an excluded plot has no visit log"))
	}

	now := requestcontext.Now(ctx)
	req.Normalize()
	entry := &models.PlotLogEntry{
		ID:             uuid.New(),
		ReportDatetime: now,
		LogStatus:      req.LogStatus,
		Reason:         req.Reason,
		ReasonOther:    req.ReasonOther,
		Comment:        req.Comment,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.ReportDatetime != nil {
		entry.ReportDatetime = *req.ReportDatetime
	}
	entry.ApplyReportDate()
	if err := entry.Validate(); err != nil {
		return nil, spanErr(span, err)
	}
	if entry.LogStatus == models.LogInaccessible && p.Confirmed() {
		return nil, spanErr(span, dErrors.New(dErrors.CodeValidation,
			"an inaccessible visit cannot be recorded against a confirmed plot").
			WithFields("log_status"))
	}

	log, err := s.logs.FindLogByPlot(ctx, p.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Heal a plot whose creation side effects were interrupted.
		log = &models.PlotLog{ID: uuid.New(), PlotID: p.ID, ReportDatetime: now, CreatedAt: now}
		if createErr := s.logs.CreateLog(ctx, log); createErr != nil {
			return nil, spanErr(span, dErrors.Wrap(createErr, dErrors.CodeInternal,
				"failed to create plot log"))
		}
	} else if err != nil {
		return nil, spanErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plot log"))
	}

	entry.PlotLogID = log.ID
	if err := s.logs.CreateEntry(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, spanErr(span, dErrors.New(dErrors.CodeConflict,
				"a visit attempt has already been recorded for this plot today").
				WithFields("report_datetime"))
		}
		return nil, spanErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create log entry"))
	}

	p.AccessAttempts++
	s.applyEntryOutcome(ctx, p, entry.LogStatus)
	p.ApplyDerived(now)
	if err := s.plots.Update(ctx, p); err != nil {
		s.logger.Warn("plot update after log entry failed",
			"plot_identifier", p.PlotIdentifier, "error", err)
	}

	s.logAudit(ctx, p, audit.ActionLogEntryCreated, string(entry.LogStatus))
	if s.metrics != nil {
		s.metrics.IncrementLogEntriesCreated()
	}
	return entry, nil
}

// UpdateLogEntry edits a visit attempt in place. Switching an entry to
// inaccessible runs the same cascade as recording one, unless the plot has
// been enrolled since.
func (s *Service) UpdateLogEntry(ctx context.Context, entryID uuid.UUID, req *models.LogEntryRequest) (*models.PlotLogEntry, error) {
	role := policy.Role(requestcontext.DeviceRole(ctx))
	if !s.policy.MayChange(role) {
		return nil, dErrors.Newf(dErrors.CodePermissionDenied,
			"role %q may not record visit attempts", role)
	}

	entry, err := s.logs.FindEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "log entry not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load log entry")
	}
	plotID, err := s.plotIDForEntry(ctx, entry)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(plotID)
	defer unlock()

	// Load the plot only once the lock is held; the access counters below
	// must be derived from the current state, not a pre-lock snapshot.
	p, err := s.plotForID(ctx, plotID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	req.Normalize()
	wasInaccessible := entry.LogStatus == models.LogInaccessible
	entry.LogStatus = req.LogStatus
	entry.Reason = req.Reason
	entry.ReasonOther = req.ReasonOther
	entry.Comment = req.Comment
	if req.ReportDatetime != nil {
		entry.ReportDatetime = *req.ReportDatetime
	}
	entry.ApplyReportDate()
	entry.UpdatedAt = now
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if entry.LogStatus == models.LogInaccessible && !wasInaccessible && p.Enrolled {
		return nil, dErrors.New(dErrors.CodeEnrollmentLock,
			"visit attempts on an enrolled plot cannot be marked inaccessible").
			WithFields("log_status")
	}

	if err := s.logs.UpdateEntry(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict,
				"a visit attempt has already been recorded for this plot on that day").
				WithFields("report_datetime")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update log entry")
	}

	s.applyEntryOutcome(ctx, p, entry.LogStatus)
	// The three-strikes rule can only deepen inaccessibility; the edited
	// entry's own outcome stands either way.
	if entries, listErr := s.logs.ListEntriesByPlot(ctx, p.ID); listErr == nil && !computeAccessible(p, entries) {
		p.Accessible = false
	}
	p.ApplyDerived(now)
	if err := s.plots.Update(ctx, p); err != nil {
		s.logger.Warn("plot update after log entry edit failed",
			"plot_identifier", p.PlotIdentifier, "error", err)
	}

	s.logAudit(ctx, p, audit.ActionLogEntryUpdated, string(entry.LogStatus))
	return entry, nil
}

// DeleteLogEntry removes a visit attempt. Deleting the last one returns the
// plot to its unsurveyed state.
func (s *Service) DeleteLogEntry(ctx context.Context, entryID uuid.UUID) error {
	role := policy.Role(requestcontext.DeviceRole(ctx))
	if !s.policy.MayChange(role) {
		return dErrors.Newf(dErrors.CodePermissionDenied,
			"role %q may not record visit attempts", role)
	}

	entry, err := s.logs.FindEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "log entry not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load log entry")
	}
	plotID, err := s.plotIDForEntry(ctx, entry)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(plotID)
	defer unlock()

	p, err := s.plotForID(ctx, plotID)
	if err != nil {
		return err
	}

	if err := s.logs.DeleteEntry(ctx, entryID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "log entry not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete log entry")
	}

	now := requestcontext.Now(ctx)
	if p.AccessAttempts > 0 {
		p.AccessAttempts--
	}
	remaining, listErr := s.logs.ListEntriesByPlot(ctx, p.ID)
	switch {
	case listErr != nil:
		// Without the surviving trail we cannot tell whether this was the
		// last entry; keep the decremented counter and leave the survey
		// content for the next mutation to settle.
		s.logger.Warn("listing entries after delete failed",
			"plot_identifier", p.PlotIdentifier, "error", listErr)
	case len(remaining) == 0 || p.AccessAttempts == 0:
		// Full un-survey reset: without a visit trail the survey content
		// recorded against the plot has nothing backing it.
		p.Accessible = true
		p.HouseholdCount = 0
		p.EligibleMembers = 0
		p.Status = nil
		p.TimeOfWeek = nil
		p.TimeOfDay = nil
		s.reconcileHouseholds(ctx, p)
	default:
		p.Accessible = computeAccessible(p, remaining)
	}
	p.ApplyDerived(now)
	if err := s.plots.Update(ctx, p); err != nil {
		s.logger.Warn("plot update after log entry delete failed",
			"plot_identifier", p.PlotIdentifier, "error", err)
	}

	s.logAudit(ctx, p, audit.ActionLogEntryDeleted, string(entry.LogStatus))
	return nil
}

// ListLogEntries returns a plot's visit attempts in chronological order.
func (s *Service) ListLogEntries(ctx context.Context, plotID uuid.UUID) ([]*models.PlotLogEntry, error) {
	if _, err := s.plots.FindByID(ctx, plotID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "plot not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plot")
	}
	entries, err := s.logs.ListEntriesByPlot(ctx, plotID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list log entries")
	}
	return entries, nil
}

// applyEntryOutcome applies the immediate accessibility signal of a visit.
// An inaccessible visit also unconfirms the plot and cascades to households.
func (s *Service) applyEntryOutcome(ctx context.Context, p *models.Plot, status models.LogStatus) {
	if status == models.LogInaccessible {
		p.ConfirmedLatitude = nil
		p.ConfirmedLongitude = nil
		p.DistanceFromTarget = nil
		p.HouseholdCount = 0
		p.Accessible = false
		s.reconcileHouseholds(ctx, p)
		return
	}
	p.Accessible = true
}

func (s *Service) plotIDForEntry(ctx context.Context, entry *models.PlotLogEntry) (uuid.UUID, error) {
	// Entries reference the log, not the plot; resolve through it.
	log, err := s.logs.FindLog(ctx, entry.PlotLogID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return uuid.Nil, dErrors.New(dErrors.CodeNotFound, "plot log not found for entry")
		}
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve plot log")
	}
	return log.PlotID, nil
}

func (s *Service) plotForID(ctx context.Context, plotID uuid.UUID) (*models.Plot, error) {
	p, err := s.plots.FindByID(ctx, plotID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "plot not found for log entry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plot")
	}
	return p, nil
}
