package household

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"fieldplot/internal/plot/models"
	"fieldplot/pkg/platform/sentinel"
)

// InMemory keeps household rows in process memory. Households that have
// gathered downstream data can be marked protected; Delete refuses to
// remove them, the same way the postgres schema restricts the delete.
type InMemory struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*models.Household
	protected map[uuid.UUID]bool
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:      make(map[uuid.UUID]*models.Household),
		protected: make(map[uuid.UUID]bool),
	}
}

func (s *InMemory) Create(ctx context.Context, h *models.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.PlotID == h.PlotID && existing.Sequence == h.Sequence {
			return sentinel.ErrConflict
		}
	}
	clone := *h
	s.byID[h.ID] = &clone
	return nil
}

func (s *InMemory) Count(ctx context.Context, plotID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, h := range s.byID {
		if h.PlotID == plotID {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) ListByPlot(ctx context.Context, plotID uuid.UUID) ([]*models.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Household
	for _, h := range s.byID {
		if h.PlotID == plotID {
			clone := *h
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (s *InMemory) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return sentinel.ErrNotFound
	}
	if s.protected[id] {
		return sentinel.ErrProtected
	}
	delete(s.byID, id)
	return nil
}

// Protect marks a household as holding downstream data. Test hook.
func (s *InMemory) Protect(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protected[id] = true
}
