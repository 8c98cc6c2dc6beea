package plotlog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"fieldplot/internal/plot/models"
	"fieldplot/pkg/platform/sentinel"
)

// InMemory keeps plot logs and their entries in process memory. One log
// per plot, one entry per log per calendar day, matching the postgres
// unique constraints.
type InMemory struct {
	mu        sync.RWMutex
	logs      map[uuid.UUID]*models.PlotLog
	logByPlot map[uuid.UUID]uuid.UUID
	entries   map[uuid.UUID]*models.PlotLogEntry
}

func NewInMemory() *InMemory {
	return &InMemory{
		logs:      make(map[uuid.UUID]*models.PlotLog),
		logByPlot: make(map[uuid.UUID]uuid.UUID),
		entries:   make(map[uuid.UUID]*models.PlotLogEntry),
	}
}

func (s *InMemory) CreateLog(ctx context.Context, log *models.PlotLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logByPlot[log.PlotID]; ok {
		return sentinel.ErrConflict
	}
	clone := *log
	s.logs[log.ID] = &clone
	s.logByPlot[log.PlotID] = log.ID
	return nil
}

func (s *InMemory) FindLog(ctx context.Context, id uuid.UUID) (*models.PlotLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.logs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *log
	return &clone, nil
}

func (s *InMemory) FindLogByPlot(ctx context.Context, plotID uuid.UUID) (*models.PlotLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.logByPlot[plotID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.logs[id]
	return &clone, nil
}

func (s *InMemory) CreateEntry(ctx context.Context, entry *models.PlotLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[entry.PlotLogID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, e := range s.entries {
		if e.PlotLogID == entry.PlotLogID && e.ReportDate.Equal(entry.ReportDate) {
			return sentinel.ErrConflict
		}
	}
	clone := *entry
	s.entries[entry.ID] = &clone
	return nil
}

func (s *InMemory) UpdateEntry(ctx context.Context, entry *models.PlotLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entries[entry.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, e := range s.entries {
		if e.ID != entry.ID && e.PlotLogID == existing.PlotLogID && e.ReportDate.Equal(entry.ReportDate) {
			return sentinel.ErrConflict
		}
	}
	clone := *entry
	clone.PlotLogID = existing.PlotLogID
	s.entries[entry.ID] = &clone
	return nil
}

func (s *InMemory) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *InMemory) FindEntry(ctx context.Context, id uuid.UUID) (*models.PlotLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (s *InMemory) ListEntriesByPlot(ctx context.Context, plotID uuid.UUID) ([]*models.PlotLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logID, ok := s.logByPlot[plotID]
	if !ok {
		return nil, nil
	}
	var out []*models.PlotLogEntry
	for _, e := range s.entries {
		if e.PlotLogID == logID {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReportDatetime.Before(out[j].ReportDatetime)
	})
	return out, nil
}
