// Package scheme implements the PTY scheme multiplexer: the single point
// that maps opaque handle ids onto concrete endpoint handles and dispatches
// the scheme verbs (open, dup, read, write, fcntl, fevent, fpath, fstat,
// fsync, close) against them.
package scheme

import (
	"strconv"
	"syscall"

	"github.com/redox-os/ptyd/handle"
	"github.com/redox-os/ptyd/pty"
)

// Stat mirrors the subset of scheme fstat a PTY handle needs to report:
// always a character device, mode 0666.
type Stat struct {
	Mode uint32
}

// ModeChar marks a character-special file in Stat.Mode, matching
// syscall.MODE_CHR from the scheme ABI this multiplexer emulates.
const ModeChar = 0o20000

// Scheme is the PTY scheme multiplexer. Its ids are assigned
// monotonically and never reused; order keeps the ids of by in insertion
// order so the event loop's per-sweep timeout/events broadcast visits
// handles in a stable, deterministic order.
type Scheme struct {
	nextID uint64
	order  []uint64
	by     map[uint64]handle.Handle

	// controllerRefs counts live controller handles per Pty. Dup and Clone
	// can produce more than one controller handle over the same Pty; the
	// Pty only detaches once the last of them closes.
	controllerRefs map[*pty.Pty]int
}

// New returns an empty multiplexer.
func New() *Scheme {
	return &Scheme{
		by:             make(map[uint64]handle.Handle),
		controllerRefs: make(map[*pty.Pty]int),
	}
}

func (s *Scheme) install(h handle.Handle) uint64 {
	id := s.nextID
	s.nextID++
	s.by[id] = h
	s.order = append(s.order, id)
	if _, ok := h.(*handle.Controller); ok {
		s.controllerRefs[h.Pty()]++
	}
	return id
}

// Open implements the two scheme paths: the empty path allocates a new PTY
// and a controller handle over it; a numeric path opens a subordinate bound
// to that controller id.
func (s *Scheme) Open(path string, flags int) (uint64, error) {
	path = trimSlashes(path)
	if path == "" {
		p := pty.New(s.nextPtyID())
		return s.install(handle.NewController(p, flags)), nil
	}

	masterID, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		return 0, syscall.EINVAL
	}
	master, ok := s.by[masterID]
	if !ok {
		return 0, syscall.ENOENT
	}
	return s.install(handle.NewSubordinate(master.Pty(), flags)), nil
}

// nextPtyID returns the id the controller handle about to be installed will
// receive, without advancing the counter, so a Pty's id and the id of its
// controller handle coincide (both come from the same monotonic counter).
func (s *Scheme) nextPtyID() uint64 { return s.nextID }

func trimSlashes(path string) string {
	start, end := 0, len(path)
	for start < end && path[start] == '/' {
		start++
	}
	for end > start && path[end-1] == '/' {
		end--
	}
	return path[start:end]
}

// Dup clones an existing handle, or — when buf names a sideband literal —
// creates a pgrp/termios/winsize sideband bound to the same Pty.
func (s *Scheme) Dup(id uint64, buf []byte) (uint64, error) {
	h, ok := s.by[id]
	if !ok {
		return 0, syscall.EBADF
	}

	var newHandle handle.Handle
	switch string(buf) {
	case "":
		newHandle = h.Clone()
	case "pgrp":
		newHandle = handle.NewPgrp(h.Pty(), 0)
	case "termios":
		newHandle = handle.NewTermios(h.Pty(), 0)
	case "winsize":
		newHandle = handle.NewWinsize(h.Pty(), 0)
	default:
		return 0, syscall.EINVAL
	}
	return s.install(newHandle), nil
}

func (s *Scheme) Read(id uint64, buf []byte) (int, error) {
	h, ok := s.by[id]
	if !ok {
		return 0, syscall.EBADF
	}
	return h.Read(buf)
}

func (s *Scheme) Write(id uint64, buf []byte) (int, error) {
	h, ok := s.by[id]
	if !ok {
		return 0, syscall.EBADF
	}
	return h.Write(buf)
}

func (s *Scheme) Fcntl(id uint64, cmd int, arg int) (int, error) {
	h, ok := s.by[id]
	if !ok {
		return 0, syscall.EBADF
	}
	return h.Fcntl(cmd, arg)
}

func (s *Scheme) FPath(id uint64, buf []byte) (int, error) {
	h, ok := s.by[id]
	if !ok {
		return 0, syscall.EBADF
	}
	return h.Path(buf)
}

func (s *Scheme) FStat(id uint64) (Stat, error) {
	if _, ok := s.by[id]; !ok {
		return Stat{}, syscall.EBADF
	}
	return Stat{Mode: ModeChar | 0o666}, nil
}

func (s *Scheme) FSync(id uint64) error {
	h, ok := s.by[id]
	if !ok {
		return syscall.EBADF
	}
	return h.Sync()
}

func (s *Scheme) FEvent(id uint64) (uint32, error) {
	h, ok := s.by[id]
	if !ok {
		return 0, syscall.EBADF
	}
	return h.FEvent()
}

// Close drops a handle. If it was the last controller handle over its Pty,
// the Pty becomes detached: it is marked Gone, and every remaining
// subordinate/sideband transitions to "pipe broken" or EOF on its next
// operation.
func (s *Scheme) Close(id uint64) error {
	h, ok := s.by[id]
	if !ok {
		return syscall.EBADF
	}
	delete(s.by, id)
	s.removeFromOrder(id)

	if _, isController := h.(*handle.Controller); isController {
		p := h.Pty()
		s.controllerRefs[p]--
		if s.controllerRefs[p] <= 0 {
			delete(s.controllerRefs, p)
			p.Close()
		}
	}
	return nil
}

func (s *Scheme) removeFromOrder(id uint64) {
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Handles returns the ids currently installed, in insertion order. Used by
// the event loop to broadcast Timeout and to scan Events each sweep.
func (s *Scheme) Handles() []uint64 {
	return append([]uint64(nil), s.order...)
}

// Handle looks up a single installed handle by id.
func (s *Scheme) Handle(id uint64) (handle.Handle, bool) {
	h, ok := s.by[id]
	return h, ok
}

// Len reports how many handles are currently installed.
func (s *Scheme) Len() int { return len(s.by) }
