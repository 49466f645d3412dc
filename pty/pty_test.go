package pty

import (
	"testing"

	"github.com/redox-os/ptyd/internal/termios"
)

func drainSubordinate(t *testing.T, p *Pty) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		pkt, ok := p.ToSubordinate().PopFront()
		if !ok {
			return out
		}
		out = append(out, pkt)
	}
}

func drainController(t *testing.T, p *Pty) []byte {
	t.Helper()
	var out []byte
	for {
		pkt, ok := p.ToController().PopFront()
		if !ok {
			return out
		}
		out = append(out, pkt...)
	}
}

func TestCanonicalLineFlushOnNewline(t *testing.T) {
	p := New(1)
	p.Input([]byte("hello\n"))

	lines := drainSubordinate(t, p)
	if len(lines) != 1 || string(lines[0]) != "hello\n" {
		t.Fatalf("expected one flushed line %q, got %q", "hello\n", lines)
	}
}

func TestCanonicalEraseEditing(t *testing.T) {
	p := New(1)
	p.Input([]byte("helly"))
	p.Input([]byte{p.Termios.Cc[termios.VERASE]}) // erase the 'y'
	p.Input([]byte("o\n"))

	lines := drainSubordinate(t, p)
	if len(lines) != 1 || string(lines[0]) != "hello\n" {
		t.Fatalf("expected erase-corrected line %q, got %q", "hello\n", lines)
	}
}

func TestCanonicalEOFFlushesWithoutTerminator(t *testing.T) {
	p := New(1)
	p.Input([]byte("partial"))
	p.Input([]byte{p.Termios.Cc[termios.VEOF]})

	lines := drainSubordinate(t, p)
	if len(lines) != 1 || string(lines[0]) != "partial" {
		t.Fatalf("expected VEOF to flush %q, got %q", "partial", lines)
	}
}

func TestEchoRoundTripsThroughOutputPostProcessing(t *testing.T) {
	p := New(1)
	p.Input([]byte("a\n"))

	// Each echoed byte is its own Output call, so its own tagged packet:
	// 'a' as one data packet, then the terminator echoed through ONLCR
	// translation ('\n' -> "\r\n") as a second data packet.
	echoed := drainController(t, p)
	want := "\x00a\x00\r\n"
	if string(echoed) != want {
		t.Fatalf("expected tagged echo %q, got %q", want, echoed)
	}
}

func TestNonCanonicalPollingFlushesImmediately(t *testing.T) {
	p := New(1)
	p.Termios.Lflag &^= termios.ICANON
	p.Termios.Cc[termios.VMIN] = 0
	p.Termios.Cc[termios.VTIME] = 0

	p.Input([]byte("x"))
	lines := drainSubordinate(t, p)
	if len(lines) != 1 || string(lines[0]) != "x" {
		t.Fatalf("expected polling readout to flush immediately, got %q", lines)
	}
}

func TestNonCanonicalVMINBlocksUntilEnoughBytes(t *testing.T) {
	p := New(1)
	p.Termios.Lflag &^= termios.ICANON
	p.Termios.Cc[termios.VMIN] = 3
	p.Termios.Cc[termios.VTIME] = 0

	p.Input([]byte("ab"))
	if got := drainSubordinate(t, p); len(got) != 0 {
		t.Fatalf("expected no flush before VMIN bytes arrive, got %q", got)
	}

	p.Input([]byte("c"))
	lines := drainSubordinate(t, p)
	if len(lines) != 1 || string(lines[0]) != "abc" {
		t.Fatalf("expected flush once VMIN satisfied, got %q", lines)
	}
}

func TestNonCanonicalVTIMEFlushesFirstByteImmediately(t *testing.T) {
	p := New(1)
	p.Termios.Lflag &^= termios.ICANON
	p.Termios.Cc[termios.VMIN] = 0
	p.Termios.Cc[termios.VTIME] = 2

	p.Input([]byte("z"))
	lines := drainSubordinate(t, p)
	if len(lines) != 1 || string(lines[0]) != "z" {
		t.Fatalf("expected immediate flush of first byte %q, got %q", "z", lines)
	}
}

func TestNonCanonicalVTIMEFlushesEmptyReadAfterDeadlineWithNoData(t *testing.T) {
	p := New(1)
	p.Termios.Lflag &^= termios.ICANON
	p.Termios.Cc[termios.VMIN] = 0
	p.Termios.Cc[termios.VTIME] = 2

	// No input at all: the anchor is only set by update() itself once it
	// first observes an empty cook with no anchor set yet.
	p.Timeout(1)
	if got := drainSubordinate(t, p); len(got) != 0 {
		t.Fatalf("expected no flush before VTIME ticks elapse, got %q", got)
	}

	p.Timeout(3)
	lines := drainSubordinate(t, p)
	if len(lines) != 1 || len(lines[0]) != 0 {
		t.Fatalf("expected one empty timed-out flush, got %q", lines)
	}
}

func TestNonCanonicalInterByteTimer(t *testing.T) {
	p := New(1)
	p.Termios.Lflag &^= termios.ICANON
	p.Termios.Cc[termios.VMIN] = 5
	p.Termios.Cc[termios.VTIME] = 1

	p.Input([]byte("ab"))
	p.Timeout(1)
	lines := drainSubordinate(t, p)
	if len(lines) != 1 || string(lines[0]) != "ab" {
		t.Fatalf("expected inter-byte timer to flush short read, got %q", lines)
	}
}

func TestToSubordinateQueueHoldsFlowControlLimitPackets(t *testing.T) {
	p := New(1)
	for i := 0; i < FlowControlLimit; i++ {
		p.ToSubordinate().PushBack([]byte{'x'})
	}
	if p.ToSubordinate().Len() != FlowControlLimit {
		t.Fatalf("expected queue length %d, got %d", FlowControlLimit, p.ToSubordinate().Len())
	}
}

func TestPartialReadPreservesTagByteOnResidual(t *testing.T) {
	p := New(1)
	p.Output([]byte("hello"))

	pkt, ok := p.ToController().PopFront()
	if !ok {
		t.Fatal("expected a packet")
	}
	// Simulate a controller handle reading only the tag + first two bytes.
	n := 3
	got := pkt[:n]
	if got[0] != 0 {
		t.Fatalf("expected tag byte 0, got %d", got[0])
	}

	residual := make([]byte, 0, len(pkt)-n+1)
	residual = append(residual, pkt[0])
	residual = append(residual, pkt[n:]...)
	p.ToController().PushFront(residual)

	rest, ok := p.ToController().PopFront()
	if !ok {
		t.Fatal("expected residual packet")
	}
	if rest[0] != 0 {
		t.Fatalf("expected residual to preserve tag byte, got %d", rest[0])
	}
	if string(rest[1:]) != "llo" {
		t.Fatalf("expected residual payload %q, got %q", "llo", rest[1:])
	}
}

func TestGoneAfterClose(t *testing.T) {
	p := New(1)
	if p.Gone() {
		t.Fatal("expected fresh Pty to not be Gone")
	}
	p.Close()
	if !p.Gone() {
		t.Fatal("expected Pty to be Gone after Close")
	}
}

func TestSignalGenerationRaisesSIGINT(t *testing.T) {
	p := New(1)
	p.SetPgrp(42)

	var got Signal
	var gotPgrp int32
	p.SetSignaler(fakeSignaler{fn: func(pgrp int32, sig Signal) { got, gotPgrp = sig, pgrp }})

	p.Input([]byte{p.Termios.Cc[termios.VINTR]})
	if got != SIGINT || gotPgrp != 42 {
		t.Fatalf("expected SIGINT to pgrp 42, got signal %d to pgrp %d", got, gotPgrp)
	}
}

type fakeSignaler struct {
	fn func(pgrp int32, sig Signal)
}

func (f fakeSignaler) Kill(pgrp int32, sig Signal) error {
	f.fn(pgrp, sig)
	return nil
}
