package lifecycle

import (
	"context"

	"territory/client/logging"
)

const (
	// EventPlayerMounted is emitted when a player view gets a visual handle.
	EventPlayerMounted logging.EventType = "lifecycle.player_mounted"
	// EventPlayerPainted is emitted when an existing player view is redrawn.
	EventPlayerPainted logging.EventType = "lifecycle.player_painted"
	// EventPlayerUnmounted is emitted when a player view and its artifacts are removed.
	EventPlayerUnmounted logging.EventType = "lifecycle.player_unmounted"
	// EventLocalPlayerClaimed is emitted once per session when the local player id is known.
	EventLocalPlayerClaimed logging.EventType = "lifecycle.local_player_claimed"
)

// ViewPayload summarises a drawn view.
type ViewPayload struct {
	Name           string  `json:"name,omitempty"`
	Color          string  `json:"color,omitempty"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	TrailPoints    int     `json:"trailPoints"`
	TerritoryCells int     `json:"territoryCells"`
}

// PlayerMounted publishes an info event for a new view.
func PlayerMounted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ViewPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerMounted,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// PlayerPainted publishes a debug event for a repaint.
func PlayerPainted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ViewPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerPainted,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// PlayerUnmounted publishes an info event for a removed view.
func PlayerUnmounted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerUnmounted,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Extra:    extra,
	})
}

// LocalPlayerClaimed publishes an info event when the session learns its player id.
func LocalPlayerClaimed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLocalPlayerClaimed,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Extra:    extra,
	})
}
