package logging

import (
	"log"
	"time"
)

const maxRetryShift = 5

// sinkWorker feeds one sink from its own buffer so a slow or failing sink
// never holds up the others. After a failed write it backs off
// exponentially, up to 32s, before the next write.
type sinkWorker struct {
	name     string
	sink     Sink
	events   chan Event
	fallback *log.Logger

	failures  int
	resumeAt  time.Time
	dropCount uint64
}

func newSinkWorker(name string, sink Sink, buffer int, fallback *log.Logger) *sinkWorker {
	return &sinkWorker{
		name:     name,
		sink:     sink,
		events:   make(chan Event, buffer),
		fallback: fallback,
	}
}

func (w *sinkWorker) enqueue(event Event) {
	select {
	case w.events <- event:
	default:
		w.dropCount++
		w.fallback.Printf("sink %s backlog full, dropping event type=%s (total %d)", w.name, event.Type, w.dropCount)
	}
}

func (w *sinkWorker) run() {
	for event := range w.events {
		if wait := time.Until(w.resumeAt); w.failures > 0 && wait > 0 {
			time.Sleep(wait)
		}
		err := w.sink.Write(event)
		if err == nil {
			w.failures = 0
			continue
		}
		w.failures++
		delay := time.Second << min(w.failures, maxRetryShift)
		w.resumeAt = time.Now().Add(delay)
		w.fallback.Printf("sink %s failed: %v (retry in %s)", w.name, err, delay)
	}
}
