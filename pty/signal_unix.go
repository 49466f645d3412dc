package pty

import "golang.org/x/sys/unix"

// UnixSignaler delivers signals to a process group via the kernel, using the
// negative-pid-addresses-a-group convention that kill(2) and the original
// Redox pty daemon both rely on.
type UnixSignaler struct{}

func (UnixSignaler) Kill(pgrp int32, sig Signal) error {
	if pgrp == 0 {
		return nil
	}
	var usig unix.Signal
	switch sig {
	case SIGINT:
		usig = unix.SIGINT
	case SIGQUIT:
		usig = unix.SIGQUIT
	case SIGTSTP:
		usig = unix.SIGTSTP
	default:
		return nil
	}
	return unix.Kill(-int(pgrp), usig)
}
