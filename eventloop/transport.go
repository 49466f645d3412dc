package eventloop

import "time"

// Transport is the request/response channel the event loop drives. A real
// deployment backs it with a Unix domain socket (SocketTransport); tests and
// in-process embedding use LocalTransport.
type Transport interface {
	// Wait blocks until either a request is readable or timeout elapses.
	// ready is false on timeout, true if Drain has something to return.
	Wait(timeout time.Duration) (ready bool, err error)

	// Drain returns every request and cancellation id that arrived since
	// the last Drain, without blocking.
	Drain() (requests []Request, cancellations []uint64, err error)

	// Respond answers a completed or failed request.
	Respond(resp Response) error

	// PostEvent announces readiness for handleID with the given event bits.
	PostEvent(handleID uint64, events uint32) error
}
