package input

import (
	"context"
	"sync"
	"time"

	"territory/client/internal/net/proto"
)

// AxisThreshold is how far a stick must lean before it counts as a
// direction.
const AxisThreshold = 0.5

// PollInterval is the gamepad sampling cadence (60 Hz).
const PollInterval = time.Second / 60

// AxisDirection maps stick axes 0 (x) and 1 (y) to a direction. The
// vertical axis wins when both lean past the threshold. Inside the dead
// zone there is no direction.
func AxisDirection(x, y float64) (proto.Direction, bool) {
	switch {
	case y < -AxisThreshold:
		return proto.DirectionUp, true
	case y > AxisThreshold:
		return proto.DirectionDown, true
	case x < -AxisThreshold:
		return proto.DirectionLeft, true
	case x > AxisThreshold:
		return proto.DirectionRight, true
	default:
		return "", false
	}
}

// AxisSource reports the current stick position. ok is false while no
// gamepad is connected.
type AxisSource interface {
	Axes() (x, y float64, ok bool)
}

// AxisSourceFunc adapts a function into an AxisSource.
type AxisSourceFunc func() (x, y float64, ok bool)

func (f AxisSourceFunc) Axes() (float64, float64, bool) {
	return f()
}

// Poller samples a gamepad and forwards direction changes to a controller.
// Holding a direction sends it once; returning to neutral sends nothing.
type Poller struct {
	src AxisSource
	ctl *Controller

	mu   sync.Mutex
	last proto.Direction
}

func NewPoller(src AxisSource, ctl *Controller) *Poller {
	return &Poller{src: src, ctl: ctl}
}

// Poll takes one sample. Safe to call from the 60 Hz loop and from the
// frame hook at the same time.
func (p *Poller) Poll(ctx context.Context) {
	if p == nil || p.src == nil {
		return
	}
	x, y, ok := p.src.Axes()
	if !ok {
		p.setLast("")
		return
	}
	dir, leaning := AxisDirection(x, y)
	if !leaning {
		p.setLast("")
		return
	}
	if !p.setLast(dir) {
		return
	}
	if p.ctl != nil {
		p.ctl.Move(ctx, dir, SourceGamepad)
	}
}

// setLast records dir and reports whether it differs from the previous
// sample.
func (p *Poller) setLast(dir proto.Direction) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == dir {
		return false
	}
	p.last = dir
	return true
}

// Run polls every interval until ctx is cancelled. A non-positive
// interval means PollInterval.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = PollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}
