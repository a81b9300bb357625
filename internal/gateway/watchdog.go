package gateway

import (
	"sync"

	"github.com/openbmc-project/bmcweb-core/internal/metrics"
	"github.com/openbmc-project/bmcweb-core/internal/timerqueue"
)

// watchdog arms per-request deadlines against the shared timer queue.
// A deadline is a chain of 5s steps: each firing re-arms the next step
// until the step budget is exhausted, at which point the connection is
// force-closed. disarm tombstones the pending step.
type watchdog struct {
	q  *timerqueue.Queue
	mx *metrics.Metrics
}

func newWatchdog(q *timerqueue.Queue, mx *metrics.Metrics) *watchdog {
	return &watchdog{q: q, mx: mx}
}

type armedDeadline struct {
	mu        sync.Mutex
	q         *timerqueue.Queue
	handle    timerqueue.Handle
	remaining int
	done      bool
	track     *connTrack
}

// arm schedules a deadline of iterations×StepTimeout against track's
// socket. ok is false when the queue is saturated; the caller MUST
// close the connection immediately, since without a timer there is no
// eviction guarantee.
func (w *watchdog) arm(track *connTrack, iterations int) (*armedDeadline, bool) {
	a := &armedDeadline{q: w.q, remaining: iterations, track: track}

	h, ok := w.q.Add(a.fire)
	if !ok {
		if w.mx != nil {
			w.mx.TimerSaturated()
		}
		return nil, false
	}
	a.handle = h
	return a, true
}

// fire runs on the timer tick: consume one step, re-arm the next, and
// close the socket once the budget is spent or the queue refuses a
// re-arm.
func (a *armedDeadline) fire() {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return
	}
	a.remaining--
	if a.remaining > 0 {
		if h, ok := a.q.Add(a.fire); ok {
			a.handle = h
			a.mu.Unlock()
			return
		}
	}
	a.done = true
	track := a.track
	a.mu.Unlock()

	track.forceClose()
}

// disarm cancels the pending step. Safe to call more than once and
// after the deadline has fired.
func (a *armedDeadline) disarm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return
	}
	a.done = true
	a.q.Cancel(a.handle)
}
