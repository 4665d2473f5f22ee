package ride

import (
	"testing"
	"time"
)

func TestDeferQueue_FiresInDueOrder(t *testing.T) {
	var q deferQueue
	var order []string

	q.after(t0, 300*time.Millisecond, func(time.Time) { order = append(order, "c") })
	q.after(t0, 100*time.Millisecond, func(time.Time) { order = append(order, "a") })
	q.after(t0, 100*time.Millisecond, func(time.Time) { order = append(order, "b") })
	q.after(t0, time.Second, func(time.Time) { order = append(order, "late") })

	if n := q.runDue(t0.Add(50 * time.Millisecond)); n != 0 {
		t.Fatalf("nothing should be due yet, fired %d", n)
	}
	if n := q.runDue(t0.Add(300 * time.Millisecond)); n != 3 {
		t.Fatalf("expected 3 callbacks, fired %d", n)
	}
	if got := len(order); got != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("unexpected order %v", order)
	}
	if q.len() != 1 {
		t.Fatalf("expected one pending callback, got %d", q.len())
	}
}

func TestDeferQueue_ChainedCallbacks(t *testing.T) {
	var q deferQueue
	var fired []time.Time

	q.after(t0, 0, func(now time.Time) {
		fired = append(fired, now)
		q.after(now, 0, func(now time.Time) { fired = append(fired, now) })
		q.after(now, time.Second, func(now time.Time) { fired = append(fired, now) })
	})

	if n := q.runDue(t0); n != 2 {
		t.Fatalf("expected immediate chain to fire in one pass, fired %d", n)
	}
	if q.len() != 1 {
		t.Fatalf("expected the delayed callback to remain, got %d", q.len())
	}
	q.runDue(t0.Add(time.Second))
	if len(fired) != 3 || !fired[2].Equal(t0.Add(time.Second)) {
		t.Fatalf("unexpected firing times %v", fired)
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(t0)
	c.Advance(250 * time.Millisecond)
	if got := c.Now(); !got.Equal(t0.Add(250 * time.Millisecond)) {
		t.Fatalf("unexpected time %v", got)
	}
	c.Set(t0)
	if !c.Now().Equal(t0) {
		t.Fatalf("Set did not move the clock")
	}
}
