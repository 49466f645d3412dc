package handle

import (
	"syscall"
	"testing"

	"github.com/redox-os/ptyd/internal/termios"
	"github.com/redox-os/ptyd/pty"
)

func TestSubordinateReadSeesControllerCookedLine(t *testing.T) {
	p := pty.New(1)
	ctrl := NewController(p, 0)
	sub := NewSubordinate(p, 0)

	if _, err := ctrl.Write([]byte("line\n")); err != nil {
		t.Fatalf("controller write failed: %v", err)
	}

	buf := make([]byte, 16)
	n, err := sub.Read(buf)
	if err != nil || string(buf[:n]) != "line\n" {
		t.Fatalf("expected %q, got %q err=%v", "line\n", buf[:n], err)
	}
}

func TestSubordinateReadReturnsEOFWhenControllerGone(t *testing.T) {
	p := pty.New(1)
	sub := NewSubordinate(p, 0)
	p.Close()

	n, err := sub.Read(make([]byte, 16))
	if err != nil || n != 0 {
		t.Fatalf("expected EOF (0, nil), got (%d, %v)", n, err)
	}
}

func TestSubordinateWriteFailsPipeBrokenWhenControllerGone(t *testing.T) {
	p := pty.New(1)
	sub := NewSubordinate(p, 0)
	p.Close()

	_, err := sub.Write([]byte("x"))
	if err != syscall.EPIPE {
		t.Fatalf("expected EPIPE, got %v", err)
	}
}

func TestSubordinateWriteParksAtFlowControlLimit(t *testing.T) {
	p := pty.New(1)
	sub := NewSubordinate(p, 0)
	for i := 0; i < pty.FlowControlLimit; i++ {
		p.ToController().PushBack([]byte{0})
	}

	_, err := sub.Write([]byte("x"))
	if !IsPark(err) {
		t.Fatalf("expected park sentinel at flow control limit, got %v", err)
	}
}

func TestSubordinateReadReRunsVMINVTIMEReadout(t *testing.T) {
	p := pty.New(1)
	ctrl := NewController(p, 0)
	sub := NewSubordinate(p, 0)

	// Written in canonical mode, "q" stays in the cook buffer; only the
	// readout the subordinate read re-runs after the switch can flush it.
	if _, err := ctrl.Write([]byte("q")); err != nil {
		t.Fatalf("controller write failed: %v", err)
	}

	p.Termios.Lflag &^= termios.ICANON
	p.Termios.Cc[termios.VMIN] = 0
	p.Termios.Cc[termios.VTIME] = 0

	buf := make([]byte, 16)
	n, err := sub.Read(buf)
	if err != nil || string(buf[:n]) != "q" {
		t.Fatalf("expected polling readout to surface %q, got %q err=%v", "q", buf[:n], err)
	}
}

func TestSubordinateFEventClearsReadLatch(t *testing.T) {
	p := pty.New(1)
	ctrl := NewController(p, 0)
	sub := NewSubordinate(p, 0)
	if _, err := ctrl.Write([]byte("a\n")); err != nil {
		t.Fatalf("controller write failed: %v", err)
	}

	ev, err := sub.FEvent()
	if err != nil || ev&EventRead == 0 {
		t.Fatalf("expected EventRead latched, got %d err=%v", ev, err)
	}
	if ev2 := sub.Events(); ev2&EventRead != 0 {
		t.Fatalf("expected EventRead not to repeat once FEvent latched it, got %d", ev2)
	}
}
