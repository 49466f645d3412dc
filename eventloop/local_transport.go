package eventloop

import "time"

// LocalTransport is an in-process Transport: requests are pushed by the
// embedding caller via Submit, responses and events are collected for the
// caller to read back via Responses/Events. No socket involved; used by
// tests and by in-process embeddings of the daemon.
type LocalTransport struct {
	pending   []Request
	cancelled []uint64
	responses []Response
	events    []postedEvent
	awakened  bool
}

type postedEvent struct {
	HandleID uint64
	Events   uint32
}

// NewLocalTransport returns an empty LocalTransport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{}
}

// Submit enqueues a request as if it had just arrived on the wire.
func (lt *LocalTransport) Submit(req Request) {
	lt.pending = append(lt.pending, req)
	lt.awakened = true
}

// Cancel enqueues a cancellation for a previously submitted, still-parked
// request id.
func (lt *LocalTransport) Cancel(id uint64) {
	lt.cancelled = append(lt.cancelled, id)
	lt.awakened = true
}

// Wait never blocks in the local transport: it reports readiness
// immediately if anything has been Submit/Cancel'd since the last Wait,
// and false (a simulated timer tick) otherwise.
func (lt *LocalTransport) Wait(time.Duration) (bool, error) {
	ready := lt.awakened
	lt.awakened = false
	return ready, nil
}

func (lt *LocalTransport) Drain() ([]Request, []uint64, error) {
	reqs, cancels := lt.pending, lt.cancelled
	lt.pending, lt.cancelled = nil, nil
	return reqs, cancels, nil
}

func (lt *LocalTransport) Respond(resp Response) error {
	lt.responses = append(lt.responses, resp)
	return nil
}

func (lt *LocalTransport) PostEvent(handleID uint64, events uint32) error {
	lt.events = append(lt.events, postedEvent{HandleID: handleID, Events: events})
	return nil
}

// TakeResponses drains and returns every response collected so far.
func (lt *LocalTransport) TakeResponses() []Response {
	r := lt.responses
	lt.responses = nil
	return r
}

// TakeEvents drains and returns every posted event collected so far.
func (lt *LocalTransport) TakeEvents() []postedEvent {
	e := lt.events
	lt.events = nil
	return e
}
