package eventloop

import (
	"syscall"

	"github.com/redox-os/ptyd/handle"
	"github.com/redox-os/ptyd/scheme"
)

// dispatch runs one Request against sch. The second return value is true
// when the operation returned handle.ErrPark and should be parked rather
// than answered.
func dispatch(sch *scheme.Scheme, req Request) (Response, bool) {
	resp := Response{ID: req.ID}

	switch req.Verb {
	case VerbOpen:
		id, err := sch.Open(req.Path, req.Flags)
		resp.N, resp.Err = int(id), err

	case VerbDup:
		id, err := sch.Dup(req.HandleID, req.Buf)
		resp.N, resp.Err = int(id), err

	case VerbRead:
		buf := make([]byte, req.BufLen)
		n, err := sch.Read(req.HandleID, buf)
		if handle.IsPark(err) {
			return resp, true
		}
		resp.N, resp.Buf, resp.Err = n, buf[:n], err

	case VerbWrite:
		n, err := sch.Write(req.HandleID, req.Buf)
		if handle.IsPark(err) {
			return resp, true
		}
		resp.N, resp.Err = n, err

	case VerbFcntl:
		n, err := sch.Fcntl(req.HandleID, req.Cmd, req.Flags)
		resp.N, resp.Err = n, err

	case VerbFPath:
		buf := make([]byte, req.BufLen)
		n, err := sch.FPath(req.HandleID, buf)
		resp.N, resp.Buf, resp.Err = n, buf[:n], err

	case VerbFStat:
		st, err := sch.FStat(req.HandleID)
		resp.Mode, resp.Err = st.Mode, err

	case VerbFSync:
		resp.Err = sch.FSync(req.HandleID)

	case VerbFEvent:
		ev, err := sch.FEvent(req.HandleID)
		resp.N, resp.Err = int(ev), err

	case VerbClose:
		resp.Err = sch.Close(req.HandleID)

	default:
		resp.Err = syscall.EINVAL
	}
	return resp, false
}
