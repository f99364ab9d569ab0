package reconcile

import "fmt"

// ResyncReason records one ignored instruction that counted towards a
// resync.
type ResyncReason struct {
	Instruction string
	PlayerID    string
	Error       string
}

func (r ResyncReason) String() string {
	if r.PlayerID == "" {
		return fmt.Sprintf("%s: %s", r.Instruction, r.Error)
	}
	return fmt.Sprintf("%s(%s): %s", r.Instruction, r.PlayerID, r.Error)
}

// ResyncSignal is raised when too many instructions were ignored for the
// mirror to be trusted.
type ResyncSignal struct {
	Ignored uint64
	Total   uint64
	Reasons []ResyncReason
}

func (s ResyncSignal) Summary() string {
	if s.Ignored == 0 && s.Total == 0 {
		return ""
	}
	return fmt.Sprintf("ignored=%d total=%d reasons=%v", s.Ignored, s.Total, s.Reasons)
}

type resyncPolicy struct {
	total   uint64
	ignored uint64
	pending bool
	reasons []ResyncReason
}

const (
	ignoredThresholdPerHundred = 10
	resyncMinimumSample        = 20
	resyncReasonLimit          = 8
)

func newResyncPolicy() *resyncPolicy {
	return &resyncPolicy{reasons: make([]ResyncReason, 0, resyncReasonLimit)}
}

func (p *resyncPolicy) noteInstruction() {
	if p == nil {
		return
	}
	if p.total == ^uint64(0) {
		p.total = p.total / 2
		p.ignored = p.ignored / 2
	}
	p.total++
	p.evaluate()
}

func (p *resyncPolicy) noteIgnored(reason ResyncReason) {
	if p == nil {
		return
	}
	p.ignored++
	if len(p.reasons) < resyncReasonLimit {
		p.reasons = append(p.reasons, reason)
	}
	p.evaluate()
}

func (p *resyncPolicy) evaluate() {
	if p == nil || p.pending || p.ignored == 0 || p.total < resyncMinimumSample {
		return
	}
	if p.ignored*100 >= p.total*ignoredThresholdPerHundred {
		p.pending = true
	}
}

func (p *resyncPolicy) consume() (ResyncSignal, bool) {
	if p == nil || !p.pending {
		return ResyncSignal{}, false
	}
	signal := ResyncSignal{
		Ignored: p.ignored,
		Total:   p.total,
		Reasons: append([]ResyncReason(nil), p.reasons...),
	}
	p.reset()
	return signal, true
}

func (p *resyncPolicy) reset() {
	p.pending = false
	p.total = 0
	p.ignored = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
}
