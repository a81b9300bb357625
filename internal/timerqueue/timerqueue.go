// Package timerqueue bounds how long a connection may occupy resources.
//
// It is a fixed-capacity, append-only ring of (enqueue instant, callback)
// pairs. Entries are never removed from the middle of the ring — a
// cancelled entry is tombstoned in place so that handles issued earlier
// remain valid indices until the ring naturally drains past them.
package timerqueue

import (
	"sync"
	"time"
)

// MaxSize is the fixed ring capacity. add returns a false ok once this
// many live-or-tombstoned entries are queued.
const MaxSize = 100

// Tick is the granularity process is expected to be driven at.
const Tick = 1 * time.Second

// StepTimeout is the per-iteration timeout threshold used by process.
// Long timeouts are built by re-arming the callback N times rather than
// by holding one long timer.
const StepTimeout = 5 * time.Second

// Handle identifies a queued entry. It stays valid until the entry is
// cancelled or fires, even as other entries ahead of it drain.
type Handle int64

type entry struct {
	enqueued time.Time
	callback func()
	tomb     bool
}

// Queue is a bounded FIFO of deadline callbacks. The zero value is not
// usable; construct with New.
type Queue struct {
	mu      sync.Mutex
	base    Handle
	entries []entry
	clock   func() time.Time
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{clock: time.Now}
}

// NewWithClock returns an empty Queue whose notion of "now" is the
// supplied function instead of time.Now — used by tests to exercise
// StepTimeout boundaries without sleeping in real time.
func NewWithClock(clock func() time.Time) *Queue {
	return &Queue{clock: clock}
}

// Add appends callback with the current instant and returns a stable
// Handle. ok is false when the ring is already at MaxSize — the caller
// MUST treat that as fatal for the connection: no timer means no
// eviction guarantee.
func (q *Queue) Add(callback func()) (h Handle, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= MaxSize {
		return 0, false
	}

	q.entries = append(q.entries, entry{enqueued: q.clock(), callback: callback})
	return q.base + Handle(len(q.entries)-1), true
}

// Cancel tombstones the entry referenced by h, if it is still live. A
// tombstoned front entry (and any run of tombstoned entries following
// it) is dropped immediately so the ring keeps shrinking instead of
// silently filling with dead slots.
func (q *Queue) Cancel(h Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := int(h - q.base)
	if idx < 0 || idx >= len(q.entries) {
		return
	}
	q.entries[idx].tomb = true
	q.dropLeadingTombstonesLocked()
}

// Len reports the number of live-or-tombstoned slots currently occupied,
// for saturation metrics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Process drains the front of the ring: tombstoned entries are dropped
// unconditionally; the first live entry stops the scan unless it has
// been queued for at least StepTimeout, in which case its callback runs
// (outside the lock) and the scan continues onto the next entry.
//
// Intended to be called once per Tick from the acceptor's ticker.
func (q *Queue) Process(now time.Time) {
	for {
		cb := q.popExpiredLocked(now)
		if cb == nil {
			return
		}
		cb()
	}
}

func (q *Queue) popExpiredLocked(now time.Time) func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.dropLeadingTombstonesLocked()
	if len(q.entries) == 0 {
		return nil
	}

	front := q.entries[0]
	if now.Sub(front.enqueued) < StepTimeout {
		return nil
	}

	q.entries = q.entries[1:]
	q.base++
	return front.callback
}

// dropLeadingTombstonesLocked must be called with mu held.
func (q *Queue) dropLeadingTombstonesLocked() {
	for len(q.entries) > 0 && q.entries[0].tomb {
		q.entries = q.entries[1:]
		q.base++
	}
}
