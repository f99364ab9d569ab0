package logging

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

const (
	defaultBufferSize = 512
	minSinkBuffer     = 32
	maxSinkBuffer     = 1024
)

// Router fans published events out to sinks. Publish never blocks: a full
// queue drops the event and counts it. Events reach every sink in publish
// order.
type Router struct {
	clock    Clock
	fallback *log.Logger
	filter   *Filter
	minimum  Severity
	fields   map[string]any
	dropWarn time.Duration

	queue   chan Event
	workers []*sinkWorker
	stop    chan struct{}
	stopped sync.WaitGroup
	closed  atomic.Bool

	routed   atomic.Uint64
	dropped  atomic.Uint64
	filtered atomic.Uint64
	nextWarn atomic.Int64

	categoryMu sync.Mutex
	categories map[string]uint64
}

type RouterStats struct {
	EventsTotal   uint64
	DroppedTotal  uint64
	FilteredTotal uint64
	// ByCategory counts routed events per category; uncategorised events
	// count under "".
	ByCategory map[string]uint64
}

// NewRouter starts a router. fallback receives the router's own complaints
// (drops, sink failures); nil means stderr.
func NewRouter(clock Clock, cfg Config, fallback *log.Logger, namedSinks []NamedSink) (*Router, error) {
	filter, err := CompileFilter(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("logging router: %w", err)
	}
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	if fallback == nil {
		fallback = log.New(os.Stderr, "[logging] ", log.LstdFlags)
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	dropWarn := cfg.DropWarnInterval
	if dropWarn <= 0 {
		dropWarn = 5 * time.Second
	}

	r := &Router{
		clock:      clock,
		fallback:   fallback,
		filter:     filter,
		minimum:    cfg.MinimumSeverity,
		fields:     cfg.CloneFields(),
		dropWarn:   dropWarn,
		queue:      make(chan Event, size),
		stop:       make(chan struct{}),
		categories: make(map[string]uint64),
	}
	perSink := min(max(size, minSinkBuffer), maxSinkBuffer)
	for _, named := range namedSinks {
		if named.Sink != nil {
			r.workers = append(r.workers, newSinkWorker(named.Name, named.Sink, perSink, fallback))
		}
	}

	for _, w := range r.workers {
		r.stopped.Add(1)
		go func(w *sinkWorker) {
			defer r.stopped.Done()
			w.run()
		}(w)
	}
	r.stopped.Add(1)
	go r.dispatch()
	return r, nil
}

func (r *Router) dispatch() {
	defer r.stopped.Done()
	defer func() {
		for _, w := range r.workers {
			close(w.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.route(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.route(event)
				default:
					return
				}
			}
		}
	}
}

// route applies the severity floor, the filter and the configured fields,
// then hands the event to every sink.
func (r *Router) route(event Event) {
	if event.Severity < r.minimum {
		return
	}
	if !r.filter.Match(event) {
		r.filtered.Add(1)
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		event = cloneForFields(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		for k, v := range r.fields {
			if _, set := event.Extra[k]; !set {
				event.Extra[k] = v
			}
		}
	}
	r.routed.Add(1)
	r.categoryMu.Lock()
	r.categories[event.Category]++
	r.categoryMu.Unlock()
	for _, w := range r.workers {
		w.enqueue(cloneForFields(event))
	}
}

func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.dropped.Add(1)
		r.warnDrop(event)
	}
}

// warnDrop logs at most one drop per DropWarnInterval.
func (r *Router) warnDrop(event Event) {
	now := time.Now().UnixNano()
	next := r.nextWarn.Load()
	if now < next {
		return
	}
	if r.nextWarn.CompareAndSwap(next, now+r.dropWarn.Nanoseconds()) {
		r.fallback.Printf("dropping event type=%s seq=%d (%d dropped so far)", event.Type, event.Seq, r.dropped.Load())
	}
}

// Close stops dispatch, drains queued events into the sinks and closes them.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.stopped.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close sink %s: %w", w.name, err)
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	r.categoryMu.Lock()
	byCategory := make(map[string]uint64, len(r.categories))
	for k, v := range r.categories {
		byCategory[k] = v
	}
	r.categoryMu.Unlock()
	return RouterStats{
		EventsTotal:   r.routed.Load(),
		DroppedTotal:  r.dropped.Load(),
		FilteredTotal: r.filtered.Load(),
		ByCategory:    byCategory,
	}
}

// Sink returns the sink registered under name, or nil.
func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}
