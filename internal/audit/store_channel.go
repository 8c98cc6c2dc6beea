package audit

import "context"

// ChannelStore decouples event emission from persistence. Append enqueues
// onto the inbox; a Worker drains the inbox into the durable store. Reads
// go straight to the durable store, so recently enqueued events may not be
// visible until the worker has caught up.
type ChannelStore struct {
	durable Store
	inbox   chan Event
}

func NewChannelStore(durable Store, buffer int) *ChannelStore {
	return &ChannelStore{durable: durable, inbox: make(chan Event, buffer)}
}

// Inbox exposes the queue for the draining Worker.
func (s *ChannelStore) Inbox() <-chan Event {
	return s.inbox
}

func (s *ChannelStore) Append(ctx context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelStore) ListByPlot(ctx context.Context, plotIdentifier string) ([]Event, error) {
	return s.durable.ListByPlot(ctx, plotIdentifier)
}
