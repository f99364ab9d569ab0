package reconcile

import "territory/client/internal/mirror"

// Handle is whatever a Sink uses to find its drawing of a view again. The
// reconciler stores it per player id and never looks inside.
type Handle any

// Sink draws player views. The reconciler calls exactly one method per
// changed player per instruction: Mount for a view it has not drawn yet,
// Paint for a view whose visible state changed, and Unmount when the
// view and every artifact derived from it must disappear.
//
// Views are deep copies and may be retained.
type Sink interface {
	Mount(view mirror.PlayerView) Handle
	Paint(h Handle, view mirror.PlayerView)
	Unmount(h Handle)
}

// NopSink draws nothing.
type NopSink struct{}

func (NopSink) Mount(mirror.PlayerView) Handle { return nil }

func (NopSink) Paint(Handle, mirror.PlayerView) {}

func (NopSink) Unmount(Handle) {}
