package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"territory/client/internal/mirror"
	"territory/client/internal/net/proto"
	"territory/client/internal/telemetry"
	"territory/client/logging"
	loggingrender "territory/client/logging/render"
)

// Options configures a Reconciler. Every field is optional.
type Options struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Counters  *telemetry.Counters
}

type entry struct {
	view mirror.PlayerView
	// trail is the last full trail from the server; view.Trail is the
	// visible part of it.
	trail  []mirror.Point
	handle Handle
}

// Reconciler projects the server's render instructions onto a mirror of
// player views and drives a Sink with the differences. Instructions must be
// applied in arrival order; the reconciler never reorders or deduplicates.
type Reconciler struct {
	mu       sync.Mutex
	sink     Sink
	entries  map[string]*entry
	order    []string
	seq      uint64
	resync   *resyncPolicy
	logger   telemetry.Logger
	pub      logging.Publisher
	counters *telemetry.Counters
}

func New(sink Sink, opts Options) *Reconciler {
	if sink == nil {
		sink = NopSink{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.Discard
	}
	pub := opts.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Reconciler{
		sink:     sink,
		entries:  make(map[string]*entry),
		resync:   newResyncPolicy(),
		logger:   logger,
		pub:      pub,
		counters: opts.Counters,
	}
}

// ApplyFrame decodes one websocket frame and applies it. Frames that do not
// decode are ignored the same way as instructions that do not apply. The
// decoded instruction is returned even when it was ignored.
func (r *Reconciler) ApplyFrame(ctx context.Context, messageType int, data []byte) (proto.Instruction, error) {
	inst, err := proto.DecodeInstruction(messageType, data)
	if err != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seq++
		r.resync.noteInstruction()
		r.ignore(ctx, inst, err)
		return inst, err
	}
	return inst, r.Apply(ctx, inst)
}

// Apply applies one instruction. A malformed or unknown instruction is
// logged and skipped; the returned error is informational and the
// reconciler stays usable.
func (r *Reconciler) Apply(ctx context.Context, inst proto.Instruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.resync.noteInstruction()

	calls, err := r.apply(inst)
	if err != nil {
		r.ignore(ctx, inst, err)
		return err
	}

	r.counters.RecordApplied(calls)
	r.counters.StorePlayers(len(r.entries))
	loggingrender.InstructionApplied(ctx, r.pub, r.seq, logging.PlayerRef(inst.Payload.ID), loggingrender.AppliedPayload{
		Instruction: inst.Type,
		SinkCalls:   calls,
	}, nil)
	return nil
}

func (r *Reconciler) ignore(ctx context.Context, inst proto.Instruction, err error) {
	r.logger.Printf("[reconcile] ignoring %s instruction for %q: %v", describe(inst.Type), inst.Payload.ID, err)
	r.counters.RecordIgnored()
	r.resync.noteIgnored(ResyncReason{Instruction: inst.Type, PlayerID: inst.Payload.ID, Error: err.Error()})

	actor := logging.EntityRef{Kind: logging.EntityKindReconciler}
	if inst.Payload.ID != "" {
		actor = logging.PlayerRef(inst.Payload.ID)
	}
	loggingrender.InstructionIgnored(ctx, r.pub, r.seq, actor, loggingrender.IgnoredPayload{
		Instruction: inst.Type,
		Reason:      err.Error(),
	}, nil)
}

func describe(kind string) string {
	if kind == "" {
		return "untyped"
	}
	return kind
}

func (r *Reconciler) apply(inst proto.Instruction) (int, error) {
	if inst.Payload.ID == "" {
		if _, known := knownTypes[inst.Type]; !known {
			return 0, fmt.Errorf("%w: %q", proto.ErrUnknownType, inst.Type)
		}
		return 0, fmt.Errorf("%w: %s missing id", proto.ErrMalformed, inst.Type)
	}
	switch inst.Type {
	case proto.TypeNewPlayer:
		return r.newPlayer(inst.Payload), nil
	case proto.TypeUpdatePlayer:
		return r.updatePlayer(inst.Payload), nil
	case proto.TypeCaptureTerritory:
		return r.captureTerritory(inst.Payload), nil
	case proto.TypeRemovePlayer:
		return r.removePlayer(inst.Payload.ID), nil
	default:
		return 0, fmt.Errorf("%w: %q", proto.ErrUnknownType, inst.Type)
	}
}

var knownTypes = map[string]struct{}{
	proto.TypeNewPlayer:        {},
	proto.TypeUpdatePlayer:     {},
	proto.TypeCaptureTerritory: {},
	proto.TypeRemovePlayer:     {},
}

func (r *Reconciler) newPlayer(p proto.PlayerPayload) int {
	if _, exists := r.entries[p.ID]; exists {
		return 0
	}
	e := &entry{view: mirror.PlayerView{ID: p.ID}}
	project(e, p)
	r.mount(e)
	return 1
}

func (r *Reconciler) updatePlayer(p proto.PlayerPayload) int {
	e, exists := r.entries[p.ID]
	if !exists {
		e = &entry{view: mirror.PlayerView{ID: p.ID}}
		project(e, p)
		r.mount(e)
		return 1
	}
	before := e.view.Clone()
	project(e, p)
	if e.view.Equal(&before) {
		return 0
	}
	r.paint(e)
	return 1
}

// project overwrites the view with the payload's state.
func project(e *entry, p proto.PlayerPayload) {
	e.view.Name = p.Name
	e.view.Color = p.Color
	e.view.Position = mirror.Point{X: p.X, Y: p.Y}
	e.view.Territory = mirror.Grid(p.LandCapture).Clone()
	if e.view.Territory == nil {
		e.view.Territory = mirror.Grid{}
	}
	e.trail = append([]mirror.Point(nil), p.PlayerTrail...)
	refreshTrail(e)
	if !e.view.HasStartingTerritory() && p.StartingLand != nil {
		e.view.StartingTerritory = mirror.Grid(p.StartingLand).Clone()
		e.view.StartingPosition = p.StartingPosition
	}
}

// refreshTrail shows the trail only while the player is outside its own
// territory.
func refreshTrail(e *entry) {
	if e.view.Home() || len(e.trail) == 0 {
		e.view.Trail = nil
		return
	}
	e.view.Trail = append([]mirror.Point(nil), e.trail...)
}

func (r *Reconciler) captureTerritory(p proto.PlayerPayload) int {
	delta := mirror.Grid(p.LandCapture)
	calls := 0

	// An unknown owner is never mounted: a capture carries no position or
	// appearance, and may trail a removePlayer. The cells still leave
	// everyone else.
	if owner, exists := r.entries[p.ID]; exists {
		changed := owner.view.Territory.Merge(delta)
		if len(owner.trail) > 0 || len(owner.view.Trail) > 0 {
			owner.trail = nil
			owner.view.Trail = nil
			changed = true
		}
		if changed {
			r.paint(owner)
			calls++
		}
	}

	for _, id := range r.order {
		if id == p.ID {
			continue
		}
		other := r.entries[id]
		if !other.view.Territory.Revoke(delta) {
			continue
		}
		refreshTrail(other)
		r.paint(other)
		calls++
	}
	return calls
}

func (r *Reconciler) removePlayer(id string) int {
	e, exists := r.entries[id]
	if !exists {
		return 0
	}
	delete(r.entries, id)
	for i, candidate := range r.order {
		if candidate == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.sink.Unmount(e.handle)
	return 1
}

func (r *Reconciler) mount(e *entry) {
	r.entries[e.view.ID] = e
	r.order = append(r.order, e.view.ID)
	e.handle = r.sink.Mount(e.view.Clone())
}

func (r *Reconciler) paint(e *entry) {
	r.sink.Paint(e.handle, e.view.Clone())
}

// Reset unmounts every view, in mount order, and forgets them. Used when
// the transport reconnects so the server can repopulate the mirror.
func (r *Reconciler) Reset(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.order)
	for _, id := range r.order {
		r.sink.Unmount(r.entries[id].handle)
	}
	r.entries = make(map[string]*entry)
	r.order = nil
	r.resync.reset()
	r.counters.StorePlayers(0)
	loggingrender.MirrorReset(ctx, r.pub, r.seq, loggingrender.ResetPayload{Views: n}, nil)
	return n
}

// ResyncRequested reports, once, that enough instructions were ignored to
// distrust the mirror. The caller is expected to force a reconnect.
func (r *Reconciler) ResyncRequested(ctx context.Context) (ResyncSignal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	signal, ok := r.resync.consume()
	if !ok {
		return signal, false
	}
	reasons := make([]string, 0, len(signal.Reasons))
	for _, reason := range signal.Reasons {
		reasons = append(reasons, reason.String())
	}
	r.counters.RecordResync()
	loggingrender.ResyncRequested(ctx, r.pub, r.seq, loggingrender.ResyncPayload{
		Ignored: signal.Ignored,
		Total:   signal.Total,
		Reasons: reasons,
	}, nil)
	return signal, true
}

// View returns a copy of the mirrored view for id.
func (r *Reconciler) View(id string) (mirror.PlayerView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return mirror.PlayerView{}, false
	}
	return e.view.Clone(), true
}

// Views returns copies of every mirrored view in mount order.
func (r *Reconciler) Views() []mirror.PlayerView {
	r.mu.Lock()
	defer r.mu.Unlock()

	views := make([]mirror.PlayerView, 0, len(r.order))
	for _, id := range r.order {
		views = append(views, r.entries[id].view.Clone())
	}
	return views
}

func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsIgnorable reports whether err came from a discarded instruction rather
// than something the caller must act on.
func IsIgnorable(err error) bool {
	return errors.Is(err, proto.ErrMalformed) || errors.Is(err, proto.ErrUnknownType)
}
