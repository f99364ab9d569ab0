package render

import (
	"context"

	"territory/client/logging"
)

const (
	// EventInstructionApplied is emitted after a render instruction changed the mirror.
	EventInstructionApplied logging.EventType = "render.instruction_applied"
	// EventInstructionIgnored is emitted when a malformed or unknown instruction is discarded.
	EventInstructionIgnored logging.EventType = "render.instruction_ignored"
	// EventMirrorReset is emitted when the mirror is cleared for a resync.
	EventMirrorReset logging.EventType = "render.mirror_reset"
	// EventResyncRequested is emitted when the ignored-instruction ratio crosses the resync threshold.
	EventResyncRequested logging.EventType = "render.resync_requested"
)

// AppliedPayload summarises one applied instruction.
type AppliedPayload struct {
	Instruction string `json:"instruction"`
	SinkCalls   int    `json:"sinkCalls"`
}

// IgnoredPayload carries the reason an instruction was discarded.
type IgnoredPayload struct {
	Instruction string `json:"instruction,omitempty"`
	Reason      string `json:"reason"`
}

// ResetPayload records how many views were unmounted by a reset.
type ResetPayload struct {
	Views int `json:"views"`
}

// ResyncPayload mirrors the resync policy signal.
type ResyncPayload struct {
	Ignored uint64   `json:"ignored"`
	Total   uint64   `json:"total"`
	Reasons []string `json:"reasons,omitempty"`
}

// InstructionApplied publishes a debug event for an applied instruction.
func InstructionApplied(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload AppliedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInstructionApplied,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryRender,
		Payload:  payload,
		Extra:    extra,
	})
}

// InstructionIgnored publishes a warning for a discarded instruction.
func InstructionIgnored(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload IgnoredPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInstructionIgnored,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryRender,
		Payload:  payload,
		Extra:    extra,
	})
}

// MirrorReset publishes an info event when the mirror is cleared.
func MirrorReset(ctx context.Context, pub logging.Publisher, seq uint64, payload ResetPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMirrorReset,
		Seq:      seq,
		Actor:    logging.EntityRef{Kind: logging.EntityKindReconciler},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryRender,
		Payload:  payload,
		Extra:    extra,
	})
}

// ResyncRequested publishes a warning when the resync policy fires.
func ResyncRequested(ctx context.Context, pub logging.Publisher, seq uint64, payload ResyncPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventResyncRequested,
		Seq:      seq,
		Actor:    logging.EntityRef{Kind: logging.EntityKindReconciler},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryRender,
		Payload:  payload,
		Extra:    extra,
	})
}
