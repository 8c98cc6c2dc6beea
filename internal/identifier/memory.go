package identifier

import (
	"context"
	"sync"
)

// InMemory allocates identifiers from process-local counters. Suitable for
// tests and single-process deployments; multi-device installations need the
// Redis allocator so sequences stay unique across writers.
type InMemory struct {
	mu        sync.Mutex
	sequences map[string]int64
}

func NewInMemory() *InMemory {
	return &InMemory{sequences: make(map[string]int64)}
}

func (a *InMemory) Allocate(ctx context.Context, mapCode string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sequences[mapCode]++
	return format(mapCode, a.sequences[mapCode]), nil
}
