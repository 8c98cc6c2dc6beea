package identifier

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFormatsMapCodeAndSequence(t *testing.T) {
	a := NewInMemory()
	ctx := context.Background()

	first, err := a.Allocate(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "10000001", first)

	second, err := a.Allocate(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "10000002", second)

	// Sequences are independent per map code.
	other, err := a.Allocate(ctx, "20")
	require.NoError(t, err)
	assert.Equal(t, "20000001", other)
}

func TestAllocateConcurrentUniqueness(t *testing.T) {
	a := NewInMemory()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]struct{}, n)

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := a.Allocate(ctx, "10")
			assert.NoError(t, err)
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n, "every allocation must be unique")
}
