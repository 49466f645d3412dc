// Package pty implements the shared state and line-discipline engine of one
// pseudoterminal pair: the cook buffer, the two packet queues that carry
// bytes between the controller and subordinate sides, and the canonical
// input processing and output post-processing state machines that transform
// bytes passing through them.
//
// Pty itself knows nothing about handles, scheme paths, or the event loop;
// it is pure data plus the transformation rules of the terminal
// line-discipline model. Callers (package handle) read and write its queues
// directly.
package pty

import "github.com/redox-os/ptyd/internal/termios"

// dataTag and syncTag are the leading byte of every toController packet.
const (
	dataTag byte = 0
	syncTag byte = 1
)

// FlowControlLimit is the packet-queue depth at which a data endpoint parks
// further writes.
const FlowControlLimit = 64

// Pty is the shared state of one controller/subordinate pair. A single
// goroutine — the event loop dispatching through the scheme multiplexer —
// is the only thing ever calling into a given Pty, so no internal
// synchronization is required.
type Pty struct {
	id uint64

	Termios termios.Termios
	Winsize termios.Winsize

	cook []byte

	toController  packetQueue
	toSubordinate packetQueue

	pgrp int32

	timeoutCount     uint64
	timeoutAnchor    uint64
	timeoutAnchorSet bool

	signaler Signaler

	// closed is set once the controller handle that strongly owns this
	// Pty is closed. Subordinate and sideband handles hold a direct
	// pointer to the Pty (Go's GC keeps it alive regardless), so "weak"
	// is modeled as a liveness flag rather than an actual weak pointer:
	// once closed, every other handle's next operation observes the
	// peer-gone condition every other handle kind must observe.
	closed bool
}

// New creates a PTY with the given id and POSIX termios/winsize defaults.
func New(id uint64) *Pty {
	return &Pty{
		id:       id,
		Termios:  termios.Default(),
		Winsize:  termios.DefaultWinsize(),
		signaler: UnixSignaler{},
	}
}

// ID returns the PTY's monotonic identifier.
func (p *Pty) ID() uint64 { return p.id }

// SetSignaler overrides the default signal delivery mechanism. Used by
// tests to observe signal delivery without touching real process groups.
func (p *Pty) SetSignaler(s Signaler) { p.signaler = s }

// Close marks the Pty as detached from its controller. The scheme calls it
// once, when the last controller handle over this Pty closes.
func (p *Pty) Close() { p.closed = true }

// Gone reports whether the controller has closed. Subordinates and
// sidebands see a gone Pty as EOF on read and pipe-broken on write.
func (p *Pty) Gone() bool { return p.closed }

// Pgrp returns the recorded foreground process group.
func (p *Pty) Pgrp() int32 { return p.pgrp }

// SetPgrp overwrites the recorded foreground process group. The pgrp
// sideband does not call it: it writes the same field through PgrpField.
func (p *Pty) SetPgrp(pgrp int32) { p.pgrp = pgrp }

// PgrpField, TermiosField and WinsizeField expose the addresses of the
// corresponding fields so the sideband handles can take raw byte views of
// them, matching the original scheme's unsafe bytewise access to the same
// fields. They're the one deliberate crack in this package's encapsulation:
// sidebands are defined in terms of raw memory, not a copy-in/copy-out API.
func (p *Pty) PgrpField() *int32             { return &p.pgrp }
func (p *Pty) TermiosField() *termios.Termios { return &p.Termios }
func (p *Pty) WinsizeField() *termios.Winsize { return &p.Winsize }

// ToController is the packet queue drained by controller reads and fed by
// Output (subordinate writes and local echo) and by Sync.
func (p *Pty) ToController() *packetQueue { return &p.toController }

// ToSubordinate is the packet queue drained by subordinate reads and fed by
// Input's canonical-mode line flushes and update's noncanonical readout.
func (p *Pty) ToSubordinate() *packetQueue { return &p.toSubordinate }

// Path writes the PTY's canonical scheme path into buf, clipped to its
// length, and returns the number of bytes written.
func (p *Pty) Path(buf []byte) int {
	path := []byte("/scheme/pty/" + itoa(p.id))
	return copy(buf, path)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[i:])
}

// Input runs the canonical/non-canonical line discipline over buf, one byte
// at a time, then calls update so a noncanonical VMIN/VTIME readout can
// react to the freshly arrived data.
func (p *Pty) Input(buf []byte) {
	for _, b := range buf {
		p.inputByte(b)
	}
	p.update()
}

func (p *Pty) inputByte(b byte) {
	t := &p.Termios

	// 1. Input translation.
	switch {
	case t.Iflag&termios.INLCR != 0 && b == '\n':
		b = '\r'
	case b == '\r':
		if t.Iflag&termios.IGNCR != 0 {
			return
		}
		if t.Iflag&termios.ICRNL != 0 {
			b = '\n'
		}
	}

	icanon := t.Lflag&termios.ICANON != 0
	isig := t.Lflag&termios.ISIG != 0
	iexten := t.Lflag&termios.IEXTEN != 0
	ixon := t.Iflag&termios.IXON != 0
	echo := t.Lflag&termios.ECHO != 0
	cc := t.Cc

	// 2. Canonical-mode editing.
	if icanon {
		switch {
		case b == '\n' || b == cc[termios.VEOL] || b == cc[termios.VEOL2]:
			if echo || (b == '\n' && t.Lflag&termios.ECHONL != 0) {
				p.emit(b)
			}
			p.cook = append(p.cook, b)
			p.flushCook()
			return
		case b == cc[termios.VEOF]:
			p.flushCook()
			return
		case b == cc[termios.VERASE]:
			if n := len(p.cook); n > 0 {
				p.cook = p.cook[:n-1]
				if t.Lflag&termios.ECHOE != 0 {
					p.emit('\b', ' ', '\b')
				}
			}
			return
		case b == cc[termios.VKILL]:
			return
		case iexten && b == cc[termios.VWERASE]:
			return
		case iexten && b == cc[termios.VREPRINT]:
			return
		}
	}

	// 3. Signal generation.
	if isig {
		switch b {
		case cc[termios.VINTR]:
			p.raise(SIGINT)
			return
		case cc[termios.VQUIT]:
			p.raise(SIGQUIT)
			return
		case cc[termios.VSUSP]:
			p.raise(SIGTSTP)
			return
		}
	}

	// 4. Flow control.
	if ixon {
		switch b {
		case cc[termios.VSTART], cc[termios.VSTOP]:
			return
		}
	}

	// 5. Extended editing.
	if iexten {
		switch b {
		case cc[termios.VLNEXT], cc[termios.VDISCARD]:
			return
		}
	}

	// 6. Ordinary byte.
	if echo {
		p.emit(b)
	}
	p.timeoutAnchor = p.timeoutCount
	p.timeoutAnchorSet = true
	p.cook = append(p.cook, b)
}

func (p *Pty) raise(sig Signal) {
	if p.pgrp != 0 {
		_ = p.signaler.Kill(p.pgrp, sig)
	}
}

// emit pushes bytes onto the controller's byte stream as if they were
// output from the subordinate side: local echo and erase feedback both flow
// through the same output post-processing as ordinary subordinate writes.
func (p *Pty) emit(bs ...byte) {
	p.Output(bs)
}

// flushCook snapshots the cook buffer into toSubordinate as one packet and
// clears it. Called unconditionally — an empty cook buffer still produces
// an empty packet, matching the polling and timed-out VMIN/VTIME corners.
func (p *Pty) flushCook() {
	line := p.cook
	p.cook = nil
	p.toSubordinate.PushBack(line)
}

// update implements the VMIN/VTIME readout state machine. It only applies
// in non-canonical mode; canonical mode flushes eagerly on terminators from
// inputByte instead.
func (p *Pty) update() {
	if p.Termios.Lflag&termios.ICANON != 0 {
		return
	}

	vmin := p.Termios.Cc[termios.VMIN]
	vtime := p.Termios.Cc[termios.VTIME]

	switch {
	case vmin == 0 && vtime == 0:
		// Polling: flush (even empty) iff nothing is already queued.
		if p.toSubordinate.Len() == 0 {
			p.flushCook()
		}

	case vmin > 0 && vtime == 0:
		// Block for at least vmin bytes.
		if len(p.cook) >= int(vmin) {
			p.flushCook()
		}

	case vmin == 0 && vtime > 0:
		// Timer from first byte.
		if len(p.cook) > 0 {
			p.flushCook()
		} else if p.timeoutAnchorSet && p.timeoutCount-p.timeoutAnchor >= uint64(vtime) {
			p.timeoutAnchorSet = false
			if p.toSubordinate.Len() == 0 {
				p.flushCook()
			}
		} else if !p.timeoutAnchorSet {
			p.timeoutAnchorSet = true
			p.timeoutAnchor = p.timeoutCount
		}

	default:
		// Inter-byte timer: vmin > 0 && vtime > 0.
		if len(p.cook) >= int(vmin) {
			p.flushCook()
		} else if len(p.cook) > 0 && p.timeoutAnchorSet && p.timeoutCount-p.timeoutAnchor >= uint64(vtime) {
			p.timeoutAnchorSet = false
			p.flushCook()
		}
	}
}

// Output post-processes subordinate-side bytes (and local echo) into a
// tagged data packet appended to toController.
func (p *Pty) Output(buf []byte) {
	pkt := make([]byte, 1, len(buf)+1)
	pkt[0] = dataTag

	opost := p.Termios.Oflag&termios.OPOST != 0
	onlcr := p.Termios.Oflag&termios.ONLCR != 0
	for _, b := range buf {
		if opost && onlcr && b == '\n' {
			pkt = append(pkt, '\r')
		}
		pkt = append(pkt, b)
	}
	p.toController.PushBack(pkt)
}

// Sync pushes a one-byte sync sentinel packet onto toController, observed
// by the controller reader as a `[1]` marker in its byte stream.
func (p *Pty) Sync() {
	p.toController.PushBack([]byte{syncTag})
}

// Update re-runs the VMIN/VTIME readout against the current tick without
// advancing it. Subordinate reads call this before draining toSubordinate
// so a read observes data a concurrent controller write just cooked.
func (p *Pty) Update() { p.update() }

// Timeout advances the PTY's tick cursor and re-runs update if the tick
// actually changed, matching the event loop's once-per-sweep timer
// broadcast. count wraps; all comparisons against it are unsigned wrapping
// arithmetic.
func (p *Pty) Timeout(count uint64) {
	if p.timeoutCount != count {
		p.timeoutCount = count
		p.update()
	}
}
