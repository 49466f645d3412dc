package handle

import (
	"syscall"

	"github.com/redox-os/ptyd/pty"
)

// Subordinate is a weak view onto the data paths. In the original Redox
// scheme this is a Weak<RefCell<Pty>>; in Go we just hold the pointer
// directly (the GC keeps Pty alive regardless of handle count) and rely on
// Pty.Gone to detect "controller closed" rather than pointer-upgrade
// failure.
type Subordinate struct {
	ptyRef *pty.Pty
	flags  int

	notifiedRead  bool
	notifiedWrite bool
}

// NewSubordinate wraps an existing Pty (found by numeric id during scheme
// open) in a subordinate handle.
func NewSubordinate(p *pty.Pty, flags int) *Subordinate {
	return &Subordinate{ptyRef: p, flags: flags}
}

func (h *Subordinate) Clone() Handle {
	return &Subordinate{ptyRef: h.ptyRef, flags: h.flags}
}

func (h *Subordinate) Pty() *pty.Pty { return h.ptyRef }

func (h *Subordinate) Path(buf []byte) (int, error) {
	if h.ptyRef.Gone() {
		return 0, syscall.EPIPE
	}
	return h.ptyRef.Path(buf), nil
}

func (h *Subordinate) Read(buf []byte) (int, error) {
	h.notifiedRead = false

	if h.ptyRef.Gone() {
		return 0, nil // EOF
	}

	// Re-run the VMIN/VTIME readout so a read can observe data that only
	// the current tick makes available.
	h.ptyRef.Update()

	pkt, ok := h.ptyRef.ToSubordinate().PopFront()
	if !ok {
		if nonBlocking(h.flags) {
			return 0, syscall.EAGAIN
		}
		return 0, ErrPark
	}

	n := copy(buf, pkt)
	if n < len(pkt) {
		tail := append([]byte(nil), pkt[n:]...)
		h.ptyRef.ToSubordinate().PushFront(tail)
	}
	return n, nil
}

func (h *Subordinate) Write(buf []byte) (int, error) {
	if h.ptyRef.Gone() {
		return 0, syscall.EPIPE
	}
	if h.ptyRef.ToController().Len() >= pty.FlowControlLimit {
		if nonBlocking(h.flags) {
			return 0, syscall.EAGAIN
		}
		return 0, ErrPark
	}
	h.ptyRef.Output(buf)
	return len(buf), nil
}

func (h *Subordinate) Sync() error {
	if h.ptyRef.Gone() {
		return syscall.EPIPE
	}
	h.ptyRef.Sync()
	return nil
}

func (h *Subordinate) Fcntl(cmd int, arg int) (int, error) {
	return fcntl(&h.flags, cmd, arg)
}

func (h *Subordinate) FEvent() (uint32, error) {
	h.notifiedRead = false
	h.notifiedWrite = false
	return h.Events(), nil
}

func (h *Subordinate) Events() uint32 {
	var ev uint32
	if !h.ptyRef.Gone() {
		if _, ok := h.ptyRef.ToSubordinate().Front(); ok {
			if !h.notifiedRead {
				h.notifiedRead = true
				ev |= EventRead
			}
		} else {
			h.notifiedRead = false
		}
	}
	if !h.notifiedWrite {
		h.notifiedWrite = true
		ev |= EventWrite
	}
	return ev
}

// Timeout is a no-op: only the controller handle forwards ticks to the
// shared Pty; a subordinate instead re-runs the readout lazily, from Read,
// right before it checks the queue.
func (h *Subordinate) Timeout(uint64) {}
