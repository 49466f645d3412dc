package handle

import (
	"syscall"
	"testing"

	"github.com/redox-os/ptyd/pty"
)

func TestControllerReadParksWhenEmpty(t *testing.T) {
	p := pty.New(1)
	c := NewController(p, 0)

	_, err := c.Read(make([]byte, 16))
	if !IsPark(err) {
		t.Fatalf("expected park sentinel, got %v", err)
	}
}

func TestControllerReadNonBlockingReturnsEAGAIN(t *testing.T) {
	p := pty.New(1)
	c := NewController(p, syscall.O_NONBLOCK)

	_, err := c.Read(make([]byte, 16))
	if err != syscall.EAGAIN {
		t.Fatalf("expected EAGAIN, got %v", err)
	}
}

func TestControllerWriteRunsLineDiscipline(t *testing.T) {
	p := pty.New(1)
	c := NewController(p, 0)

	n, err := c.Write([]byte("hi\n"))
	if err != nil || n != 3 {
		t.Fatalf("expected (3, nil), got (%d, %v)", n, err)
	}
	if pkt, ok := p.ToSubordinate().PopFront(); !ok || string(pkt) != "hi\n" {
		t.Fatalf("expected line discipline to cook %q into toSubordinate, got %q ok=%v", "hi\n", pkt, ok)
	}
}

func TestControllerReadDrainsOutputWithTag(t *testing.T) {
	p := pty.New(1)
	c := NewController(p, 0)
	p.Sync()

	buf := make([]byte, 16)
	n, err := c.Read(buf)
	if err != nil || n != 1 || buf[0] != 1 {
		t.Fatalf("expected sync tag packet, got n=%d err=%v byte=%d", n, err, buf[0])
	}
}

func TestControllerPartialReadResidualKeepsTagByte(t *testing.T) {
	p := pty.New(1)
	c := NewController(p, 0)
	p.Output([]byte("abcdef"))

	first := make([]byte, 3) // tag + 2 data bytes
	n, err := c.Read(first)
	if err != nil || n != 3 {
		t.Fatalf("expected short read of 3 bytes, got n=%d err=%v", n, err)
	}

	rest := make([]byte, 16)
	n, err = c.Read(rest)
	if err != nil {
		t.Fatalf("expected residual read to succeed, got %v", err)
	}
	if rest[0] != 0 {
		t.Fatalf("expected residual to preserve data tag, got %d", rest[0])
	}
	if string(rest[1:n]) != "cdef" {
		t.Fatalf("expected residual payload %q, got %q", "cdef", rest[1:n])
	}
}

func TestControllerFcntlGetSetFlags(t *testing.T) {
	c := NewController(pty.New(1), 0)

	n, err := c.Fcntl(syscall.F_SETFL, syscall.O_NONBLOCK)
	if err != nil || n != 0 {
		t.Fatalf("unexpected SETFL result: %d %v", n, err)
	}
	n, err = c.Fcntl(syscall.F_GETFL, 0)
	if err != nil || n&syscall.O_NONBLOCK == 0 {
		t.Fatalf("expected O_NONBLOCK to stick, got %d %v", n, err)
	}
}

func TestControllerCloneIsIndependentHandle(t *testing.T) {
	p := pty.New(1)
	c := NewController(p, 0)
	clone := c.Clone()

	if clone.Pty() != p {
		t.Fatal("expected clone to share the same Pty")
	}
	if clone == Handle(c) {
		t.Fatal("expected clone to be a distinct handle instance")
	}
}
