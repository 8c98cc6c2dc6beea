package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"fieldplot/internal/audit"
	"fieldplot/internal/geo"
	"fieldplot/internal/platform/config"
	"fieldplot/internal/plot/metrics"
	"fieldplot/internal/plot/models"
	"fieldplot/internal/policy"
)

type PlotStore interface {
	Create(ctx context.Context, p *models.Plot) error
	Update(ctx context.Context, p *models.Plot) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plot, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.Plot, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Plot, error)
}

type PlotLogStore interface {
	CreateLog(ctx context.Context, log *models.PlotLog) error
	FindLog(ctx context.Context, id uuid.UUID) (*models.PlotLog, error)
	FindLogByPlot(ctx context.Context, plotID uuid.UUID) (*models.PlotLog, error)
	CreateEntry(ctx context.Context, entry *models.PlotLogEntry) error
	UpdateEntry(ctx context.Context, entry *models.PlotLogEntry) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	FindEntry(ctx context.Context, id uuid.UUID) (*models.PlotLogEntry, error)
	ListEntriesByPlot(ctx context.Context, plotID uuid.UUID) ([]*models.PlotLogEntry, error)
}

type HouseholdStore interface {
	Create(ctx context.Context, h *models.Household) error
	Count(ctx context.Context, plotID uuid.UUID) (int, error)
	ListByPlot(ctx context.Context, plotID uuid.UUID) ([]*models.Household, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type IdentifierAllocator interface {
	Allocate(ctx context.Context, mapCode string) (string, error)
}

type GeoVerifier interface {
	Distance(p1, p2 geo.Point) float64
	WithinRadius(point, target geo.Point, radius float64) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the lifecycle engine: the single entry point for every plot
// and log-entry mutation. Validation runs before any write; side effects
// (log creation, household reconciliation) run strictly after the core
// write and are best-effort.
type Service struct {
	plots      PlotStore
	logs       PlotLogStore
	households HouseholdStore
	allocator  IdentifierAllocator
	verifier   GeoVerifier
	policy     *policy.RolePolicy
	survey     config.SurveyConfig

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics

	locks plotLocks
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(
	plots PlotStore,
	logs PlotLogStore,
	households HouseholdStore,
	allocator IdentifierAllocator,
	verifier GeoVerifier,
	rolePolicy *policy.RolePolicy,
	survey config.SurveyConfig,
	opts ...Option,
) *Service {
	s := &Service{
		plots:      plots,
		logs:       logs,
		households: households,
		allocator:  allocator,
		verifier:   verifier,
		policy:     rolePolicy,
		survey:     survey,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, plot *models.Plot, action audit.Action, detail string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		PlotIdentifier: plot.PlotIdentifier,
		MapArea:        plot.MapArea,
		Action:         action,
		Detail:         detail,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "action", action, "error", err)
	}
}

// plotLocks serializes mutations per plot. The access-attempts counter and
// the accessibility recompute are read-modify-write sequences; two devices
// posting log entries for the same plot must not interleave.
type plotLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (l *plotLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// computeAccessible applies the status and exclusion gates plus the
// three-strikes rule over the most recent entries.
func computeAccessible(p *models.Plot, entries []*models.PlotLogEntry) bool {
	if p.Status != nil && *p.Status == models.StatusInaccessible {
		return false
	}
	if p.Excluded() {
		return false
	}
	if len(entries) >= 3 {
		recent := entries[len(entries)-3:]
		allInaccessible := true
		for _, e := range recent {
			if e.LogStatus != models.LogInaccessible {
				allInaccessible = false
				break
			}
		}
		if allInaccessible {
			return false
		}
	}
	return true
}
