package plot

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fieldplot/internal/plot/models"
	"fieldplot/pkg/platform/sentinel"
)

// InMemory keeps plots in process memory. It backs unit tests and
// single-device deployments; the uniqueness rules match the postgres
// schema (identifier unique, target coordinates unique).
type InMemory struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.Plot
	byIdent map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[uuid.UUID]*models.Plot),
		byIdent: make(map[string]uuid.UUID),
	}
}

func (s *InMemory) Create(ctx context.Context, p *models.Plot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byIdent[p.PlotIdentifier]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.byID {
		if existing.TargetLatitude == p.TargetLatitude &&
			existing.TargetLongitude == p.TargetLongitude {
			return sentinel.ErrConflict
		}
	}
	clone := *p
	s.byID[p.ID] = &clone
	s.byIdent[p.PlotIdentifier] = p.ID
	return nil
}

func (s *InMemory) Update(ctx context.Context, p *models.Plot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.PlotIdentifier != p.PlotIdentifier {
		return sentinel.ErrInvalidState
	}
	clone := *p
	s.byID[p.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id uuid.UUID) (*models.Plot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *InMemory) FindByIdentifier(ctx context.Context, identifier string) (*models.Plot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdent[identifier]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[id]
	return &clone, nil
}

func (s *InMemory) List(ctx context.Context, filter models.Filter) ([]*models.Plot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Plot
	for _, p := range s.byID {
		if !matches(p, filter) {
			continue
		}
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PlotIdentifier > out[j].PlotIdentifier
	})
	return out, nil
}

func matches(p *models.Plot, f models.Filter) bool {
	if f.MapArea != "" && !strings.EqualFold(p.MapArea, f.MapArea) {
		return false
	}
	if f.PlotIdentifier != "" && p.PlotIdentifier != f.PlotIdentifier {
		return false
	}
	if f.Accessible != nil && p.Accessible != *f.Accessible {
		return false
	}
	if f.Confirmed != nil && p.Confirmed() != *f.Confirmed {
		return false
	}
	if f.Enrolled != nil && p.Enrolled != *f.Enrolled {
		return false
	}
	if f.ESS != nil && p.ESS != *f.ESS {
		return false
	}
	if f.RSS != nil && p.RSS != *f.RSS {
		return false
	}
	if f.HTC != nil && p.HTC != *f.HTC {
		return false
	}
	if f.MinAccessAttempts != nil && p.AccessAttempts < *f.MinAccessAttempts {
		return false
	}
	return true
}
