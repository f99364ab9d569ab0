package input

import (
	"context"

	"territory/client/logging"
)

const (
	// EventMoveSent is emitted for every outbound direction message.
	EventMoveSent logging.EventType = "input.move_sent"
	// EventMoveDropped is emitted when an outbound message could not be sent.
	EventMoveDropped logging.EventType = "input.move_dropped"
	// EventPauseToggled is emitted when the pause overlay opens or closes.
	EventPauseToggled logging.EventType = "input.pause_toggled"
	// EventCustomizationSent is emitted when name/color are pushed to the server.
	EventCustomizationSent logging.EventType = "input.customization_sent"
)

// MovePayload names the direction and where it came from (keyboard, gamepad).
type MovePayload struct {
	Direction string `json:"direction"`
	Source    string `json:"source"`
	Reason    string `json:"reason,omitempty"`
}

// PausePayload carries the new pause state.
type PausePayload struct {
	Paused bool `json:"paused"`
}

// CustomizationPayload carries the pushed name and color.
type CustomizationPayload struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func actor() logging.EntityRef {
	return logging.EntityRef{Kind: logging.EntityKindInput}
}

// MoveSent publishes a debug event for an outbound move.
func MoveSent(ctx context.Context, pub logging.Publisher, payload MovePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMoveSent,
		Actor:    actor(),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryInput,
		Payload:  payload,
		Extra:    extra,
	})
}

// MoveDropped publishes a warning for a move that never left the client.
func MoveDropped(ctx context.Context, pub logging.Publisher, payload MovePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMoveDropped,
		Actor:    actor(),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryInput,
		Payload:  payload,
		Extra:    extra,
	})
}

// PauseToggled publishes an info event for the pause overlay.
func PauseToggled(ctx context.Context, pub logging.Publisher, payload PausePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPauseToggled,
		Actor:    actor(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryInput,
		Payload:  payload,
		Extra:    extra,
	})
}

// CustomizationSent publishes an info event for a name/color update.
func CustomizationSent(ctx context.Context, pub logging.Publisher, payload CustomizationPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCustomizationSent,
		Actor:    actor(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryInput,
		Payload:  payload,
		Extra:    extra,
	})
}
