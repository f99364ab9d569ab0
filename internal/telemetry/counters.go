package telemetry

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Counters aggregates client-side activity. All methods are safe for
// concurrent use and on a nil receiver.
type Counters struct {
	framesReceived      atomic.Uint64
	bytesReceived       atomic.Uint64
	instructionsApplied atomic.Uint64
	instructionsIgnored atomic.Uint64
	sinkCalls           atomic.Uint64
	connects            atomic.Uint64
	reconnects          atomic.Uint64
	resyncs             atomic.Uint64
	movesSent           atomic.Uint64
	movesDropped        atomic.Uint64
	players             atomic.Int64
	debug               bool
}

type Snapshot struct {
	FramesReceived      uint64 `json:"framesReceived"`
	BytesReceived       uint64 `json:"bytesReceived"`
	InstructionsApplied uint64 `json:"instructionsApplied"`
	InstructionsIgnored uint64 `json:"instructionsIgnored"`
	SinkCalls           uint64 `json:"sinkCalls"`
	Connects            uint64 `json:"connects"`
	Reconnects          uint64 `json:"reconnects"`
	Resyncs             uint64 `json:"resyncs"`
	MovesSent           uint64 `json:"movesSent"`
	MovesDropped        uint64 `json:"movesDropped"`
	Players             int64  `json:"players"`
}

func NewCounters() *Counters {
	c := &Counters{}
	if os.Getenv("DEBUG_TELEMETRY") == "1" {
		c.debug = true
	}
	return c
}

func (c *Counters) RecordFrame(bytes int) {
	if c == nil {
		return
	}
	if bytes < 0 {
		bytes = 0
	}
	c.framesReceived.Add(1)
	c.bytesReceived.Add(uint64(bytes))
}

func (c *Counters) RecordApplied(sinkCalls int) {
	if c == nil {
		return
	}
	if sinkCalls < 0 {
		sinkCalls = 0
	}
	c.instructionsApplied.Add(1)
	c.sinkCalls.Add(uint64(sinkCalls))
}

func (c *Counters) RecordIgnored() {
	if c == nil {
		return
	}
	c.instructionsIgnored.Add(1)
}

// RecordConnect counts a successful dial; every dial after the first is a
// reconnect.
func (c *Counters) RecordConnect() {
	if c == nil {
		return
	}
	if c.connects.Add(1) > 1 {
		c.reconnects.Add(1)
	}
}

func (c *Counters) RecordResync() {
	if c == nil {
		return
	}
	c.resyncs.Add(1)
}

func (c *Counters) RecordMove(sent bool) {
	if c == nil {
		return
	}
	if sent {
		c.movesSent.Add(1)
	} else {
		c.movesDropped.Add(1)
	}
}

func (c *Counters) StorePlayers(n int) {
	if c == nil {
		return
	}
	c.players.Store(int64(n))
}

func (c *Counters) DebugEnabled() bool {
	return c != nil && c.debug
}

func (c *Counters) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		FramesReceived:      c.framesReceived.Load(),
		BytesReceived:       c.bytesReceived.Load(),
		InstructionsApplied: c.instructionsApplied.Load(),
		InstructionsIgnored: c.instructionsIgnored.Load(),
		SinkCalls:           c.sinkCalls.Load(),
		Connects:            c.connects.Load(),
		Reconnects:          c.reconnects.Load(),
		Resyncs:             c.resyncs.Load(),
		MovesSent:           c.movesSent.Load(),
		MovesDropped:        c.movesDropped.Load(),
		Players:             c.players.Load(),
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"frames=%d bytes=%d applied=%d ignored=%d sinkCalls=%d players=%d reconnects=%d resyncs=%d moves=%d dropped=%d",
		s.FramesReceived,
		s.BytesReceived,
		s.InstructionsApplied,
		s.InstructionsIgnored,
		s.SinkCalls,
		s.Players,
		s.Reconnects,
		s.Resyncs,
		s.MovesSent,
		s.MovesDropped,
	)
}
