package pty

// Signaler delivers a signal to a process group. The line discipline calls
// it with the PTY's recorded foreground pgrp whenever a signal-generating
// control character (VINTR, VQUIT, VSUSP) is seen with ISIG set. Errors are
// ignored by the caller: delivery is best-effort, matching a real tty
// driver's ioctl(TIOCSIG)-style fire-and-forget semantics.
type Signaler interface {
	Kill(pgrp int32, sig Signal) error
}

// Signal mirrors the subset of process signals the line discipline can
// generate. It is a distinct type (rather than syscall.Signal) so that the
// pty package does not depend on a platform-specific signal package.
type Signal int

const (
	SIGINT Signal = iota + 1
	SIGQUIT
	SIGTSTP
)

// NopSignaler discards every signal. New installs UnixSignaler by default;
// NopSignaler can be set with SetSignaler where job control does not matter.
type NopSignaler struct{}

func (NopSignaler) Kill(int32, Signal) error { return nil }
