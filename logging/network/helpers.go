package network

import (
	"context"

	"territory/client/logging"
)

const (
	// EventConnected is emitted when a websocket session is established.
	EventConnected logging.EventType = "network.connected"
	// EventDisconnected is emitted when a session ends for any reason.
	EventDisconnected logging.EventType = "network.disconnected"
	// EventDialFailed is emitted when a connection attempt fails.
	EventDialFailed logging.EventType = "network.dial_failed"
	// EventReconnectScheduled is emitted before waiting out the reconnect delay.
	EventReconnectScheduled logging.EventType = "network.reconnect_scheduled"
)

// ConnectedPayload describes a new session.
type ConnectedPayload struct {
	URL      string `json:"url"`
	ClientID string `json:"clientId,omitempty"`
	Attempt  uint64 `json:"attempt"`
}

// DisconnectedPayload carries the reason a session ended.
type DisconnectedPayload struct {
	Reason   string `json:"reason"`
	Frames   uint64 `json:"frames"`
	Duration string `json:"duration"`
}

// DialFailedPayload carries the dial error.
type DialFailedPayload struct {
	URL     string `json:"url"`
	Error   string `json:"error"`
	Attempt uint64 `json:"attempt"`
}

// ReconnectPayload carries the fixed delay before the next attempt.
type ReconnectPayload struct {
	DelayMillis int64 `json:"delayMillis"`
}

func session(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindSession}
}

// Connected publishes an info event for a new session.
func Connected(ctx context.Context, pub logging.Publisher, sessionID string, payload ConnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConnected,
		Actor:    session(sessionID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

// Disconnected publishes a warning when a session ends.
func Disconnected(ctx context.Context, pub logging.Publisher, sessionID string, payload DisconnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDisconnected,
		Actor:    session(sessionID),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

// DialFailed publishes a warning for a failed connection attempt.
func DialFailed(ctx context.Context, pub logging.Publisher, payload DialFailedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDialFailed,
		Actor:    session(""),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

// ReconnectScheduled publishes an info event before the reconnect wait.
func ReconnectScheduled(ctx context.Context, pub logging.Publisher, payload ReconnectPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventReconnectScheduled,
		Actor:    session(""),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
