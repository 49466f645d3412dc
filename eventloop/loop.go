// Package eventloop drives the scheme multiplexer's request/response cycle:
// draining the transport, dispatching through the scheme, parking requests
// that would block, advancing the timer tick, and posting readiness events.
// It mirrors the daemon main loop of the original scheme, generalized from a
// kernel event queue to a pluggable Transport.
package eventloop

import (
	"github.com/redox-os/ptyd/scheme"
)

type pending struct {
	req       Request
	cancelled bool
}

// Loop owns one run of the event loop against a Scheme and a Transport.
type Loop struct {
	sch     *scheme.Scheme
	t       Transport
	todo    []*pending
	ticks   uint64
	onSweep func()
}

// New builds a Loop ready to Run.
func New(sch *scheme.Scheme, t Transport) *Loop {
	return &Loop{sch: sch, t: t}
}

// SetSweepHook registers fn to run at the end of every sweep, after events
// are issued. The bridge pump uses this to mirror bytes between bridged
// Ptys and their kernel PTY pairs on the same single goroutine the rest of
// the loop runs on, rather than racing a second goroutine against it.
func (l *Loop) SetSweepHook(fn func()) { l.onSweep = fn }

// Run drives sweeps forever, waiting up to tickPeriod between them, until
// Wait or any transport operation returns an error (including the caller
// cancelling via a context-aware Transport implementation).
func (l *Loop) Run(tickPeriod TickPeriod) error {
	if err := l.sweepOnce(); err != nil {
		return err
	}
	for {
		ready, err := l.t.Wait(tickPeriod.Duration())
		if err != nil {
			return err
		}
		if ready {
			if err := l.drainAndDispatch(); err != nil {
				return err
			}
		} else {
			l.tick()
		}
		if err := l.sweepTodo(); err != nil {
			return err
		}
		if err := l.issueEvents(); err != nil {
			return err
		}
		if l.onSweep != nil {
			l.onSweep()
		}
	}
}

// sweepOnce performs one full drain+dispatch / todo / events cycle, used
// both as Run's priming pass and by tests driving the loop step by step.
func (l *Loop) sweepOnce() error {
	if err := l.drainAndDispatch(); err != nil {
		return err
	}
	if err := l.sweepTodo(); err != nil {
		return err
	}
	if err := l.issueEvents(); err != nil {
		return err
	}
	if l.onSweep != nil {
		l.onSweep()
	}
	return nil
}

func (l *Loop) drainAndDispatch() error {
	reqs, cancels, err := l.t.Drain()
	if err != nil {
		return err
	}
	for _, id := range cancels {
		for _, p := range l.todo {
			if p.req.ID == id {
				p.cancelled = true
			}
		}
	}
	for _, req := range reqs {
		resp, parked := dispatch(l.sch, req)
		if parked {
			l.todo = append(l.todo, &pending{req: req})
			continue
		}
		if err := l.t.Respond(resp); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) tick() {
	l.ticks++
	for _, id := range l.sch.Handles() {
		if h, ok := l.sch.Handle(id); ok {
			h.Timeout(l.ticks)
		}
	}
}

func (l *Loop) sweepTodo() error {
	remaining := l.todo[:0]
	for _, p := range l.todo {
		resp, parked := dispatch(l.sch, p.req)
		switch {
		case !parked:
			if err := l.t.Respond(resp); err != nil {
				return err
			}
		case p.cancelled:
			if err := l.t.Respond(Response{ID: p.req.ID, Err: errEINTR}); err != nil {
				return err
			}
		default:
			remaining = append(remaining, p)
		}
	}
	l.todo = remaining
	return nil
}

func (l *Loop) issueEvents() error {
	for _, id := range l.sch.Handles() {
		h, ok := l.sch.Handle(id)
		if !ok {
			continue
		}
		if ev := h.Events(); ev != 0 {
			if err := l.t.PostEvent(id, ev); err != nil {
				return err
			}
		}
	}
	return nil
}
