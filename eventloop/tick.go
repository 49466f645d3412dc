package eventloop

import (
	"syscall"
	"time"
)

var errEINTR = syscall.EINTR

// TickPeriod is the daemon-global timer interval driving timeout().
type TickPeriod time.Duration

// Duration returns the tick period, defaulting to 100ms when unset.
func (t TickPeriod) Duration() time.Duration {
	if t <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(t)
}

// DefaultTickPeriod matches the original scheme's 100ms timer.
const DefaultTickPeriod TickPeriod = TickPeriod(100 * time.Millisecond)
