package eventloop

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/daedaluz/fdev/poll"

	"github.com/redox-os/ptyd/eventloop/wire"
)

// SocketTransport backs Transport with a Unix domain socket accepting one
// or more client connections, each carrying requests framed per the
// eventloop/wire protocol. It waits for readability the same way the
// teacher's own serial Port.readTimeout does: poll.WaitInput with a zero
// timeout against the listening socket's file descriptor (new connections)
// and every accepted connection's file descriptor (pending requests), then,
// if none is ready, a wait of up to the timeout on the listening socket
// alone. A request arriving on an existing connection during that wait is
// picked up by the next Wait.
type SocketTransport struct {
	ln     *net.UnixListener
	lnFile *os.File

	mu    sync.Mutex
	conns []*clientConn

	pendingReqs   []Request
	pendingCancel []uint64
}

type clientConn struct {
	c    *net.UnixConn
	file *os.File
}

// NewSocketTransport listens on a Unix domain socket at path.
func NewSocketTransport(path string) (*SocketTransport, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}
	lnFile, err := ln.File()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	return &SocketTransport{ln: ln, lnFile: lnFile}, nil
}

func (s *SocketTransport) Close() error {
	_ = s.lnFile.Close()
	return s.ln.Close()
}

// Wait blocks for up to timeout for either a new connection or data on an
// existing one, filling pendingReqs/pendingCancel for the next Drain.
func (s *SocketTransport) Wait(timeout time.Duration) (bool, error) {
	if err := poll.WaitInput(int(s.lnFile.Fd()), 0); err == nil {
		s.accept()
		return true, nil
	}

	s.mu.Lock()
	conns := append([]*clientConn(nil), s.conns...)
	s.mu.Unlock()

	for _, cc := range conns {
		if err := poll.WaitInput(int(cc.file.Fd()), 0); err == nil {
			s.readOne(cc)
			return true, nil
		}
	}

	// Nothing ready yet; block the remaining budget on the listener so
	// Run's own loop still wakes on the configured tick period when idle.
	if err := poll.WaitInput(int(s.lnFile.Fd()), timeout); err == nil {
		s.accept()
		return true, nil
	}
	return false, nil
}

func (s *SocketTransport) accept() {
	c, err := s.ln.AcceptUnix()
	if err != nil {
		return
	}
	f, err := c.File()
	if err != nil {
		_ = c.Close()
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, &clientConn{c: c, file: f})
	s.mu.Unlock()
}

func (s *SocketTransport) readOne(cc *clientConn) {
	var hdrBuf [wire.RequestHeaderSize]byte
	if err := wire.ReadFull(cc.c, hdrBuf[:]); err != nil {
		s.drop(cc)
		return
	}
	hdr := wire.DecodeRequestHeader(hdrBuf[:])

	payload := make([]byte, hdr.BufLen)
	if hdr.BufLen > 0 {
		if err := wire.ReadFull(cc.c, payload); err != nil {
			s.drop(cc)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if hdr.Verb == wire.CancelMarker {
		s.pendingCancel = append(s.pendingCancel, hdr.ID)
		return
	}

	req := Request{
		ID:       hdr.ID,
		Verb:     Verb(hdr.Verb),
		HandleID: hdr.HandleID,
		Flags:    int(hdr.Flags),
		Cmd:      int(hdr.Cmd),
		BufLen:   int(hdr.BufLen),
	}
	switch req.Verb {
	case VerbOpen:
		req.Path = string(payload)
	default:
		req.Buf = payload
	}
	s.pendingReqs = append(s.pendingReqs, req)
}

func (s *SocketTransport) drop(cc *clientConn) {
	_ = cc.file.Close()
	_ = cc.c.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.conns {
		if c == cc {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return
		}
	}
}

func (s *SocketTransport) Drain() ([]Request, []uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reqs, cancels := s.pendingReqs, s.pendingCancel
	s.pendingReqs, s.pendingCancel = nil, nil
	return reqs, cancels, nil
}

// Respond writes a response header plus payload to every connection. Each
// request id is only meaningful to the client that sent it; other clients
// simply ignore ids they never issued.
func (s *SocketTransport) Respond(resp Response) error {
	hdr := wire.ResponseHeader{ID: resp.ID, N: int32(resp.N), BufLen: uint32(len(resp.Buf))}
	if resp.Err != nil {
		hdr.Result = -int32(errnoOf(resp.Err))
	}
	return s.broadcast(hdr.Encode(), resp.Buf)
}

func (s *SocketTransport) PostEvent(handleID uint64, events uint32) error {
	hdr := wire.ResponseHeader{ID: handleID, N: int32(events), Result: eventMarker}
	return s.broadcast(hdr.Encode(), nil)
}

// eventMarker distinguishes a posted fevent from an ordinary response on
// the same connection; chosen outside the valid negative-errno range.
const eventMarker = 1

func (s *SocketTransport) broadcast(hdr, payload []byte) error {
	s.mu.Lock()
	conns := append([]*clientConn(nil), s.conns...)
	s.mu.Unlock()

	var firstErr error
	for _, cc := range conns {
		if err := writeAll(cc.c, hdr, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeAll(w io.Writer, hdr, payload []byte) error {
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return int(syscall.EIO)
}
