package render

import (
	"context"

	"territory/client/internal/mirror"
	"territory/client/internal/reconcile"
	"territory/client/logging"
	"territory/client/logging/lifecycle"
)

// EventSink reports sink calls as lifecycle events. Useful headless, where
// the event log is the only visible output.
type EventSink struct {
	ctx context.Context
	pub logging.Publisher
}

func NewEventSink(ctx context.Context, pub logging.Publisher) *EventSink {
	if ctx == nil {
		ctx = context.Background()
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &EventSink{ctx: ctx, pub: pub}
}

func (s *EventSink) Mount(view mirror.PlayerView) reconcile.Handle {
	lifecycle.PlayerMounted(s.ctx, s.pub, logging.PlayerRef(view.ID), viewPayload(view), nil)
	return view.ID
}

func (s *EventSink) Paint(h reconcile.Handle, view mirror.PlayerView) {
	lifecycle.PlayerPainted(s.ctx, s.pub, logging.PlayerRef(view.ID), viewPayload(view), nil)
}

func (s *EventSink) Unmount(h reconcile.Handle) {
	id, _ := h.(string)
	lifecycle.PlayerUnmounted(s.ctx, s.pub, logging.PlayerRef(id), nil)
}

func viewPayload(view mirror.PlayerView) lifecycle.ViewPayload {
	return lifecycle.ViewPayload{
		Name:           view.Name,
		Color:          view.Color,
		X:              view.Position.X,
		Y:              view.Position.Y,
		TrailPoints:    len(view.Trail),
		TerritoryCells: view.Territory.Count(),
	}
}
