// Package handle implements the five endpoint views a scheme open or dup can
// produce over a shared *pty.Pty: the controller, the subordinate, and the
// pgrp/termios/winsize sidebands. Each Handle is the Go analogue of the
// Resource trait in the original Redox ptyd: a small per-open state machine
// (flags, notification latches) layered over the one shared Pty.
package handle

import (
	"syscall"

	"github.com/redox-os/ptyd/pty"
)

// Event flags returned by Events/FEvent, matching the scheme transport's
// readiness-packet bits.
const (
	EventRead  uint32 = 1 << 0
	EventWrite uint32 = 1 << 1
)

// ErrPark is returned internally by Read/Write to mean "no progress
// possible right now, but the caller should be parked and retried on the
// next sweep" rather than failed outright. The scheme multiplexer passes it
// through unchanged and the event loop recognizes it; it never reaches a
// client.
var ErrPark error = errPark{}

type errPark struct{}

func (errPark) Error() string { return "pty: would block (parked)" }

// IsPark reports whether err is the internal park sentinel.
func IsPark(err error) bool {
	_, ok := err.(errPark)
	return ok
}

// Handle is the common interface the scheme multiplexer dispatches through.
// Every concrete handle in this package implements it.
type Handle interface {
	// Clone produces an independent handle of the same kind, flags, and
	// underlying Pty reference, but with fresh notification latches —
	// the behavior of dup with an empty name.
	Clone() Handle

	// Pty returns the handle's underlying shared state, used by the
	// scheme to resolve dup('pgrp'/'termios'/'winsize') and subordinate
	// opens against an existing controller id.
	Pty() *pty.Pty

	Path(buf []byte) (int, error)
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Sync() error

	Fcntl(cmd int, arg int) (int, error)
	FEvent() (uint32, error)
	Events() uint32

	// Timeout forwards a tick to the underlying Pty. Only the controller
	// handle does anything with it: it is the strong owner, so it is
	// the one handle guaranteed to still have a live Pty to forward to.
	Timeout(count uint64)
}

func fcntl(flags *int, cmd int, arg int) (int, error) {
	switch cmd {
	case syscall.F_GETFL:
		return *flags, nil
	case syscall.F_SETFL:
		*flags = (*flags & syscall.O_ACCMODE) | (arg &^ syscall.O_ACCMODE)
		return 0, nil
	default:
		return 0, syscall.EINVAL
	}
}

func nonBlocking(flags int) bool {
	return flags&syscall.O_NONBLOCK != 0
}
