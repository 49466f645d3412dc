package handle

import (
	"syscall"
	"unsafe"

	"github.com/redox-os/ptyd/pty"
)

// sidebandKind names which field of the Pty a sideband handle exposes; bytes
// selects the field by it and Clone carries it over.
type sidebandKind int

const (
	sidebandPgrp sidebandKind = iota
	sidebandTermios
	sidebandWinsize
)

// sideband is the shared shape of the pgrp/termios/winsize handles: each is
// a weak, non-waitable, raw-byte view onto one field of the Pty.
type sideband struct {
	ptyRef *pty.Pty
	kind   sidebandKind
	flags  int
}

// NewPgrp, NewTermios and NewWinsize build the three sideband handles a dup
// with the matching literal name produces.
func NewPgrp(p *pty.Pty, flags int) Handle    { return &sideband{ptyRef: p, kind: sidebandPgrp, flags: flags} }
func NewTermios(p *pty.Pty, flags int) Handle { return &sideband{ptyRef: p, kind: sidebandTermios, flags: flags} }
func NewWinsize(p *pty.Pty, flags int) Handle { return &sideband{ptyRef: p, kind: sidebandWinsize, flags: flags} }

func (h *sideband) Clone() Handle {
	return &sideband{ptyRef: h.ptyRef, kind: h.kind, flags: h.flags}
}

func (h *sideband) Pty() *pty.Pty { return h.ptyRef }

func (h *sideband) Path(buf []byte) (int, error) {
	if h.ptyRef.Gone() {
		return 0, syscall.EPIPE
	}
	return h.ptyRef.Path(buf), nil
}

// bytes returns a live byte view of the sideband's field: writes through
// the returned slice mutate the Pty directly, mirroring the original's
// unsafe raw-memory reinterpretation of the termios/winsize/pgrp fields.
func (h *sideband) bytes() []byte {
	switch h.kind {
	case sidebandPgrp:
		p := h.ptyRef.PgrpField()
		return unsafe.Slice((*byte)(unsafe.Pointer(p)), unsafe.Sizeof(*p))
	case sidebandTermios:
		t := h.ptyRef.TermiosField()
		return unsafe.Slice((*byte)(unsafe.Pointer(t)), unsafe.Sizeof(*t))
	case sidebandWinsize:
		w := h.ptyRef.WinsizeField()
		return unsafe.Slice((*byte)(unsafe.Pointer(w)), unsafe.Sizeof(*w))
	default:
		return nil
	}
}

func (h *sideband) Read(buf []byte) (int, error) {
	if h.ptyRef.Gone() {
		return 0, nil // EOF
	}
	return copy(buf, h.bytes()), nil
}

func (h *sideband) Write(buf []byte) (int, error) {
	if h.ptyRef.Gone() {
		return 0, syscall.EPIPE
	}
	return copy(h.bytes(), buf), nil
}

func (h *sideband) Sync() error {
	if h.ptyRef.Gone() {
		return syscall.EPIPE
	}
	return nil
}

func (h *sideband) Fcntl(cmd int, arg int) (int, error) {
	return fcntl(&h.flags, cmd, arg)
}

// FEvent and Events: sidebands are never waitable. fevent always fails
// EBADF; events is always empty.
func (h *sideband) FEvent() (uint32, error) { return 0, syscall.EBADF }
func (h *sideband) Events() uint32          { return 0 }

func (h *sideband) Timeout(uint64) {}
