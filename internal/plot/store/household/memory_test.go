package household

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldplot/internal/plot/models"
	"fieldplot/pkg/platform/sentinel"
)

func newHousehold(plotID uuid.UUID, seq int) *models.Household {
	now := time.Now().UTC()
	return &models.Household{
		ID:             uuid.New(),
		PlotID:         plotID,
		Sequence:       seq,
		ReportDatetime: now,
		CreatedAt:      now,
	}
}

func TestInMemorySequenceUnique(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	plotID := uuid.New()

	require.NoError(t, store.Create(ctx, newHousehold(plotID, 1)))
	assert.ErrorIs(t, store.Create(ctx, newHousehold(plotID, 1)), sentinel.ErrConflict)

	// same sequence on another plot is fine
	require.NoError(t, store.Create(ctx, newHousehold(uuid.New(), 1)))
}

func TestInMemoryCountAndList(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	plotID := uuid.New()

	require.NoError(t, store.Create(ctx, newHousehold(plotID, 2)))
	require.NoError(t, store.Create(ctx, newHousehold(plotID, 1)))
	require.NoError(t, store.Create(ctx, newHousehold(uuid.New(), 1)))

	n, err := store.Count(ctx, plotID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := store.ListByPlot(ctx, plotID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Sequence)
	assert.Equal(t, 2, list[1].Sequence)
}

func TestInMemoryDeleteProtected(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	plotID := uuid.New()

	h1 := newHousehold(plotID, 1)
	h2 := newHousehold(plotID, 2)
	require.NoError(t, store.Create(ctx, h1))
	require.NoError(t, store.Create(ctx, h2))
	store.Protect(h1.ID)

	assert.ErrorIs(t, store.Delete(ctx, h1.ID), sentinel.ErrProtected)
	require.NoError(t, store.Delete(ctx, h2.ID))
	assert.ErrorIs(t, store.Delete(ctx, h2.ID), sentinel.ErrNotFound)

	n, err := store.Count(ctx, plotID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
