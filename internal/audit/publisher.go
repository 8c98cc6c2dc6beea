package audit

import (
	"context"

	"fieldplot/pkg/requestcontext"
)

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByPlot(ctx context.Context, plotIdentifier string) ([]Event, error)
}

// Publisher captures structured audit events. It uses the storage layer for
// persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.DeviceID == "" {
		event.DeviceID = requestcontext.DeviceID(ctx)
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, plotIdentifier string) ([]Event, error) {
	return p.store.ListByPlot(ctx, plotIdentifier)
}
