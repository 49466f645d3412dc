// Package bridge optionally backs a pty.Pty with a real Linux kernel PTY
// pair, so that an ordinary external process can be attached to a
// subordinate the same way it would be attached to a kernel tty, rather
// than only ever talking to this daemon's own scheme namespace.
//
// It is grounded directly on the ioctl calling convention and constant
// catalog of the termios/serial driver this daemon's line discipline was
// itself adapted from: raw TIOCxxx numbers passed through goioctl, struct
// pointers marshaled with unsafe.Pointer, exactly the pattern that driver
// uses for TCGETS/TCSETS.
package bridge

import (
	"os"
	"syscall"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
	"golang.org/x/sys/unix"

	"github.com/redox-os/ptyd/internal/termios"
	"github.com/redox-os/ptyd/pty"
)

var (
	tiocgptn    = ioctl.IOR('T', 0x30, unsafe.Sizeof(uint32(0)))
	tiocsptlck  = ioctl.IOW('T', 0x31, unsafe.Sizeof(int32(0)))
	tiocgptpeer = ioctl.IO('T', 0x41)
	tiocswinsz  = uintptr(0x5414)
	tiocgwinsz  = uintptr(0x5413)
)

// kernelWinsize mirrors struct winsize from <asm-generic/termios.h>, the
// shape TIOCSWINSZ/TIOCGWINSZ expect on the wire. termios.Winsize has the
// same four-uint16 layout but is the sideband's own type; Bridge copies
// between the two field by field.
type kernelWinsize struct {
	Row, Col, Xpixel, Ypixel uint16
}

// Bridge owns one open kernel PTY pair: master (this process's end) and
// peer (the device node an external process opens).
type Bridge struct {
	master   *os.File
	peerPath string
}

// Open allocates a fresh kernel PTY pair via /dev/ptmx, unlocks it, and
// resolves its peer device path.
func Open() (*Bridge, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}

	var unlock int32
	if err := ioctl.Ioctl(master.Fd(), tiocsptlck, uintptr(unsafe.Pointer(&unlock))); err != nil {
		_ = master.Close()
		return nil, err
	}

	var n uint32
	if err := ioctl.Ioctl(master.Fd(), tiocgptn, uintptr(unsafe.Pointer(&n))); err != nil {
		_ = master.Close()
		return nil, err
	}

	return &Bridge{master: master, peerPath: ptsPath(n)}, nil
}

// OpenPeer returns a file descriptor for the peer side directly via
// TIOCGPTPEER, avoiding the /dev/pts/<n> path race a concurrent mount
// namespace change could otherwise introduce. TIOCGPTPEER takes open flags
// as its argument by value and returns the new descriptor as the ioctl's
// own return value, rather than through an out-parameter like the other
// ioctls here — that shape needs the raw syscall, not goioctl's
// pointer-argument Ioctl helper.
func (b *Bridge) OpenPeer(flags int) (*os.File, error) {
	fd, _, errno := unix.Syscall(unix.SYS_IOCTL, b.master.Fd(), tiocgptpeer, uintptr(flags))
	if errno != 0 {
		return nil, errno
	}
	return os.NewFile(fd, b.peerPath), nil
}

func ptsPath(n uint32) string {
	return "/dev/pts/" + itoa(n)
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var digits [10]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[i:])
}

// PeerPath is the device node an external process should open to become
// the subordinate side of this bridge.
func (b *Bridge) PeerPath() string { return b.peerPath }

// MasterFD exposes the raw master descriptor.
func (b *Bridge) MasterFD() uintptr { return b.master.Fd() }

// SetWinSize pushes winsize to the kernel PTY, translating from this
// daemon's termios.Winsize layout to the kernel's struct winsize.
func (b *Bridge) SetWinSize(w termios.Winsize) error {
	kw := kernelWinsize{Row: w.Row, Col: w.Col, Xpixel: w.Xpixel, Ypixel: w.Ypixel}
	return ioctl.Ioctl(b.master.Fd(), tiocswinsz, uintptr(unsafe.Pointer(&kw)))
}

// WinSize reads the kernel's current winsize back.
func (b *Bridge) WinSize() (termios.Winsize, error) {
	var kw kernelWinsize
	if err := ioctl.Ioctl(b.master.Fd(), tiocgwinsz, uintptr(unsafe.Pointer(&kw))); err != nil {
		return termios.Winsize{}, err
	}
	return termios.Winsize{Row: kw.Row, Col: kw.Col, Xpixel: kw.Xpixel, Ypixel: kw.Ypixel}, nil
}

// Close releases the master fd. The peer device remains until any process
// holding it also closes.
func (b *Bridge) Close() error {
	return b.master.Close()
}

// pumpBufSize is the size of each non-blocking read from the kernel master
// fd; Pump repeats the read until the fd reports EAGAIN.
const pumpBufSize = 4096

// Pump mirrors bytes between the kernel PTY pair and p's queues. Called
// once per event-loop sweep for every bridged Pty: bytes the peer process
// writes arrive via p.Output (so a controller reader observes them);
// cooked lines p's line discipline already flushed into ToSubordinate are
// written out to the peer.
func (b *Bridge) Pump(p *pty.Pty) error {
	// os.File.Fd switches the descriptor to blocking mode; restore
	// O_NONBLOCK so the read loop stops at EAGAIN instead of waiting.
	fd := int(b.master.Fd())
	if err := syscall.SetNonblock(fd, true); err != nil {
		return err
	}

	in := make([]byte, pumpBufSize)
	for {
		n, err := syscall.Read(fd, in)
		if err != nil {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				break
			}
			return err
		}
		if n <= 0 {
			break
		}
		p.Output(in[:n])
	}

	for {
		pkt, ok := p.ToSubordinate().PopFront()
		if !ok {
			break
		}
		if _, err := syscall.Write(fd, pkt); err != nil {
			return err
		}
	}
	return nil
}
