package ride

import (
	"sort"
	"sync"
	"time"
)

// Clock supplies the engine's notion of "now". Deferred callbacks (boost expiry,
// arrival delay) are due relative to this clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock (with monotonic reading).
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a controllable clock for tests and offline replay.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualClock creates a manual clock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// deferred is a fire-and-forget callback due at a point in time.
type deferred struct {
	due time.Time
	seq uint64
	fn  func(now time.Time)
}

// deferQueue holds callbacks scheduled by engine components. It is drained by the
// owning loop, so callbacks run on the same goroutine as every other state write.
//
// There is no cancel: callbacks guard themselves with generation counters or
// condition checks and become no-ops once superseded.
type deferQueue struct {
	pending []deferred
	seq     uint64
}

// after schedules fn to run once at or after now+d.
func (q *deferQueue) after(now time.Time, d time.Duration, fn func(now time.Time)) {
	q.seq++
	q.pending = append(q.pending, deferred{due: now.Add(d), seq: q.seq, fn: fn})
}

// runDue fires every callback due at or before now, in due-time order
// (ties in scheduling order). Callbacks scheduled while draining that are already
// due also run in this pass.
func (q *deferQueue) runDue(now time.Time) int {
	fired := 0
	for {
		var due []deferred
		rest := q.pending[:0]
		for _, d := range q.pending {
			if !d.due.After(now) {
				due = append(due, d)
			} else {
				rest = append(rest, d)
			}
		}
		q.pending = rest
		if len(due) == 0 {
			return fired
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].due.Equal(due[j].due) {
				return due[i].seq < due[j].seq
			}
			return due[i].due.Before(due[j].due)
		})
		for _, d := range due {
			d.fn(now)
			fired++
		}
	}
}

// len reports the number of callbacks not yet fired.
func (q *deferQueue) len() int { return len(q.pending) }
