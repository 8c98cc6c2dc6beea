package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"fieldplot/internal/audit"
	"fieldplot/internal/plot/models"
	"fieldplot/pkg/platform/sentinel"
	"fieldplot/pkg/requestcontext"
)

// reconcileHouseholds brings the household rows owned by a plot into parity
// with its declared count. It is best-effort and convergent rather than
// atomic: deletes refused by downstream references are skipped, creates
// that lose a sequence race are swallowed, and the declared count is
// downgraded to whatever actually remains. Safe to call repeatedly.
//
// Returns true when the plot's declared count was changed and the caller
// should persist it again.
func (s *Service) reconcileHouseholds(ctx context.Context, p *models.Plot) bool {
	desired := p.HouseholdCount
	if !p.Confirmed() {
		// Count invariants upstream reject a positive count on an
		// unconfirmed plot; anything still here is the unconfirm cascade.
		desired = 0
	}
	if desired > s.survey.MaxHouseholds {
		desired = s.survey.MaxHouseholds
	}

	existing, err := s.households.ListByPlot(ctx, p.ID)
	if err != nil {
		s.logger.Warn("household reconciliation skipped",
			"plot_identifier", p.PlotIdentifier, "error", err)
		return false
	}

	touched := 0
	if excess := len(existing) - desired; excess > 0 {
		// Highest sequence numbers go first; protected rows are skipped,
		// not failed.
		for i := 0; i < excess; i++ {
			h := existing[len(existing)-1-i]
			if err := s.households.Delete(ctx, h.ID); err != nil {
				if errors.Is(err, sentinel.ErrProtected) {
					s.logger.Info("household delete refused, keeping",
						"plot_identifier", p.PlotIdentifier,
						"sequence", h.Sequence)
					continue
				}
				if errors.Is(err, sentinel.ErrNotFound) {
					continue
				}
				s.logger.Warn("household delete failed",
					"plot_identifier", p.PlotIdentifier, "error", err)
				continue
			}
			touched++
		}
	} else if len(existing) < desired {
		now := requestcontext.Now(ctx)
		taken := make(map[int]bool, len(existing))
		for _, h := range existing {
			taken[h.Sequence] = true
		}
		seq := 1
		for created := len(existing); created < desired; {
			for taken[seq] {
				seq++
			}
			h := &models.Household{
				ID:             uuid.New(),
				PlotID:         p.ID,
				Sequence:       seq,
				ReportDatetime: now,
				CreatedAt:      now,
			}
			if err := s.households.Create(ctx, h); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					// Another device claimed this sequence; treat it as done.
					taken[seq] = true
					created++
					continue
				}
				s.logger.Warn("household create failed",
					"plot_identifier", p.PlotIdentifier, "error", err)
				break
			}
			taken[seq] = true
			created++
			touched++
		}
	}

	actual, err := s.households.Count(ctx, p.ID)
	if err != nil {
		s.logger.Warn("household recount failed",
			"plot_identifier", p.PlotIdentifier, "error", err)
		return false
	}
	if s.metrics != nil && touched > 0 {
		s.metrics.AddHouseholdsReconciled(touched)
	}
	if touched > 0 {
		s.logAudit(ctx, p, audit.ActionHouseholdsReconciled, "")
	}
	if actual != p.HouseholdCount {
		p.HouseholdCount = actual
		return true
	}
	return false
}
