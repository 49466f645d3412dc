package handle

import (
	"syscall"

	"github.com/redox-os/ptyd/pty"
)

// Controller is the strong-owning endpoint: it holds the *pty.Pty alive and
// is the one handle whose close tears the PTY down for every weak holder.
// Writes to it run the input line discipline; reads drain the data that
// line discipline (and subordinate output) produced.
type Controller struct {
	ptyRef *pty.Pty
	flags  int

	notifiedRead  bool
	notifiedWrite bool
}

// NewController wraps a freshly allocated Pty in a controller handle. Used
// only by the scheme's open(""), which is the sole place a Pty is created.
func NewController(p *pty.Pty, flags int) *Controller {
	return &Controller{ptyRef: p, flags: flags}
}

func (h *Controller) Clone() Handle {
	return &Controller{ptyRef: h.ptyRef, flags: h.flags}
}

func (h *Controller) Pty() *pty.Pty { return h.ptyRef }

func (h *Controller) Path(buf []byte) (int, error) {
	return h.ptyRef.Path(buf), nil
}

func (h *Controller) Read(buf []byte) (int, error) {
	pkt, ok := h.ptyRef.ToController().PopFront()
	if !ok {
		if nonBlocking(h.flags) {
			return 0, syscall.EAGAIN
		}
		return 0, ErrPark
	}
	h.notifiedRead = false

	n := copy(buf, pkt)
	if n < len(pkt) {
		if n == 0 {
			h.ptyRef.ToController().PushFront(pkt)
		} else {
			residual := make([]byte, 0, len(pkt)-n+1)
			residual = append(residual, pkt[0]) // preserve the tag byte
			residual = append(residual, pkt[n:]...)
			h.ptyRef.ToController().PushFront(residual)
		}
	}
	return n, nil
}

func (h *Controller) Write(buf []byte) (int, error) {
	if h.ptyRef.ToSubordinate().Len() >= pty.FlowControlLimit {
		if nonBlocking(h.flags) {
			return 0, syscall.EAGAIN
		}
		return 0, ErrPark
	}
	h.ptyRef.Input(buf)
	return len(buf), nil
}

// Sync is a no-op on the controller side: there is nothing downstream of it
// to drain.
func (h *Controller) Sync() error { return nil }

func (h *Controller) Fcntl(cmd int, arg int) (int, error) {
	return fcntl(&h.flags, cmd, arg)
}

func (h *Controller) FEvent() (uint32, error) {
	h.notifiedRead = false
	h.notifiedWrite = false
	return h.Events(), nil
}

func (h *Controller) Events() uint32 {
	var ev uint32
	if _, ok := h.ptyRef.ToController().Front(); ok {
		if !h.notifiedRead {
			h.notifiedRead = true
			ev |= EventRead
		}
	} else {
		h.notifiedRead = false
	}
	if !h.notifiedWrite {
		h.notifiedWrite = true
		ev |= EventWrite
	}
	return ev
}

// Timeout is meaningful only here: the controller is the one handle
// guaranteed to hold a live Pty, so the event loop's per-tick broadcast
// only does real work when it reaches a Controller.
func (h *Controller) Timeout(count uint64) {
	h.ptyRef.Timeout(count)
}
