package render

import (
	"context"
	"sync"

	"territory/client/internal/mirror"
	"territory/client/internal/reconcile"
)

type opKind int

const (
	opMount opKind = iota
	opPaint
	opUnmount
)

type op struct {
	kind   opKind
	handle *queuedHandle
	view   mirror.PlayerView
}

// queuedHandle stands in for the inner sink's handle until the worker has
// run the mount. Only the worker touches inner.
type queuedHandle struct {
	inner reconcile.Handle
}

// Queue makes any Sink asynchronous. Calls return immediately and are
// replayed on a single worker goroutine in the order they were made, so a
// slow sink never stalls instruction processing.
type Queue struct {
	inner reconcile.Sink

	mu      sync.Mutex
	pending []op
	wake    chan struct{}
	closed  bool
	done    chan struct{}
	idle    *sync.Cond
	busy    bool
}

func NewQueue(inner reconcile.Sink) *Queue {
	if inner == nil {
		inner = reconcile.NopSink{}
	}
	q := &Queue{
		inner: inner,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *Queue) Mount(view mirror.PlayerView) reconcile.Handle {
	h := &queuedHandle{}
	q.push(op{kind: opMount, handle: h, view: view})
	return h
}

func (q *Queue) Paint(h reconcile.Handle, view mirror.PlayerView) {
	qh, ok := h.(*queuedHandle)
	if !ok {
		return
	}
	q.push(op{kind: opPaint, handle: qh, view: view})
}

func (q *Queue) Unmount(h reconcile.Handle) {
	qh, ok := h.(*queuedHandle)
	if !ok {
		return
	}
	q.push(op{kind: opUnmount, handle: qh})
}

func (q *Queue) push(o op) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, o)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 {
			q.busy = false
			q.idle.Broadcast()
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wake
			q.mu.Lock()
		}
		batch := q.pending
		q.pending = nil
		q.busy = true
		q.mu.Unlock()

		for _, o := range batch {
			q.exec(o)
		}
	}
}

func (q *Queue) exec(o op) {
	switch o.kind {
	case opMount:
		o.handle.inner = q.inner.Mount(o.view)
	case opPaint:
		q.inner.Paint(o.handle.inner, o.view)
	case opUnmount:
		q.inner.Unmount(o.handle.inner)
	}
}

// Flush blocks until every call made before it has reached the inner sink.
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) > 0 || q.busy {
		q.idle.Wait()
	}
}

// Len reports how many calls are waiting for the worker.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting calls and waits for the backlog to drain.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
