package render

import (
	"territory/client/internal/mirror"
	"territory/client/internal/reconcile"
)

// Tee forwards every call to each of its sinks, in order.
type Tee []reconcile.Sink

type teeHandle []reconcile.Handle

func (t Tee) Mount(view mirror.PlayerView) reconcile.Handle {
	handles := make(teeHandle, len(t))
	for i, sink := range t {
		handles[i] = sink.Mount(view.Clone())
	}
	return handles
}

func (t Tee) Paint(h reconcile.Handle, view mirror.PlayerView) {
	handles, ok := h.(teeHandle)
	if !ok || len(handles) != len(t) {
		return
	}
	for i, sink := range t {
		sink.Paint(handles[i], view.Clone())
	}
}

func (t Tee) Unmount(h reconcile.Handle) {
	handles, ok := h.(teeHandle)
	if !ok || len(handles) != len(t) {
		return
	}
	for i, sink := range t {
		sink.Unmount(handles[i])
	}
}
