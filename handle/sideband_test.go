package handle

import (
	"syscall"
	"testing"

	"github.com/redox-os/ptyd/internal/termios"
	"github.com/redox-os/ptyd/pty"
)

func TestPgrpSidebandRoundTrip(t *testing.T) {
	p := pty.New(1)
	side := NewPgrp(p, 0)

	in := []byte{42, 0, 0, 0}
	n, err := side.Write(in)
	if err != nil || n != 4 {
		t.Fatalf("unexpected write result: %d %v", n, err)
	}
	if p.Pgrp() != 42 {
		t.Fatalf("expected pgrp 42, got %d", p.Pgrp())
	}

	out := make([]byte, 4)
	n, err = side.Read(out)
	if err != nil || n != 4 {
		t.Fatalf("unexpected read result: %d %v", n, err)
	}
	if out[0] != 42 {
		t.Fatalf("expected read-back pgrp byte 42, got %d", out[0])
	}
}

func TestWinsizeSidebandWriteChangesPtyWinsize(t *testing.T) {
	p := pty.New(1)
	side := NewWinsize(p, 0)

	want := termios.Winsize{Row: 50, Col: 120}
	raw := make([]byte, 8)
	raw[0], raw[1] = byte(want.Row), byte(want.Row>>8)
	raw[2], raw[3] = byte(want.Col), byte(want.Col>>8)

	if _, err := side.Write(raw); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if p.Winsize.Row != 50 || p.Winsize.Col != 120 {
		t.Fatalf("expected winsize 50x120, got %dx%d", p.Winsize.Row, p.Winsize.Col)
	}
}

func TestSidebandFEventAlwaysEBADF(t *testing.T) {
	p := pty.New(1)
	side := NewTermios(p, 0)

	if _, err := side.FEvent(); err != syscall.EBADF {
		t.Fatalf("expected EBADF, got %v", err)
	}
	if side.Events() != 0 {
		t.Fatal("expected sidebands to never report events")
	}
}

func TestSidebandPipeBrokenWhenPtyGone(t *testing.T) {
	p := pty.New(1)
	side := NewPgrp(p, 0)
	p.Close()

	if _, err := side.Write([]byte{1, 0, 0, 0}); err != syscall.EPIPE {
		t.Fatalf("expected EPIPE on write, got %v", err)
	}
	if n, err := side.Read(make([]byte, 4)); err != nil || n != 0 {
		t.Fatalf("expected EOF read (0, nil), got (%d, %v)", n, err)
	}
}
