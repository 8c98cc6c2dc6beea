package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fieldplot/pkg/requestcontext"
)

func TestPublisherStampsContextIdentity(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithDeviceID(ctx, "21")

	err := pub.Emit(ctx, Event{
		PlotIdentifier: "10000001",
		Action:         ActionPlotCreated,
	})
	require.NoError(t, err)

	events, err := store.ListByPlot(ctx, "10000001")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, now, events[0].Timestamp)
	require.Equal(t, "21", events[0].DeviceID)
}

func TestWorkerDrainsChannelStore(t *testing.T) {
	durable := NewInMemoryStore()
	channel := NewChannelStore(durable, 8)
	worker := NewWorker(durable, channel.Inbox())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	pub := NewPublisher(channel)
	for _, action := range []Action{ActionPlotCreated, ActionPlotConfirmed, ActionPlotEnrolled} {
		err := pub.Emit(context.Background(), Event{
			Timestamp:      time.Now().UTC(),
			PlotIdentifier: "10000002",
			Action:         action,
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		events, err := durable.ListByPlot(context.Background(), "10000002")
		return err == nil && len(events) == 3
	}, time.Second, 10*time.Millisecond)

	// Reads through the channel store hit the durable store.
	events, err := channel.ListByPlot(context.Background(), "10000002")
	require.NoError(t, err)
	require.Equal(t, ActionPlotEnrolled, events[2].Action)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestChannelStoreAppendHonorsCancellation(t *testing.T) {
	channel := NewChannelStore(NewInMemoryStore(), 1)

	require.NoError(t, channel.Append(context.Background(), Event{Action: ActionPlotCreated}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := channel.Append(ctx, Event{Action: ActionPlotUpdated})
	require.ErrorIs(t, err, context.Canceled)
}
