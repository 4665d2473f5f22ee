package ride

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestInput_StepClampedToMaxStep(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	e.OnWheel(10000) // 10000 * 0.0005 = 5 -> clamped to 0.05
	if got := e.state.Progress(); !approx(got, DefaultMaxStep) {
		t.Fatalf("expected progress %v, got %v", DefaultMaxStep, got)
	}

	e.OnWheel(-10000)
	if got := e.state.Progress(); !approx(got, 0) {
		t.Fatalf("expected progress back at 0, got %v", got)
	}
}

func TestInput_BoostScalesStep(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	startRiding(t, e)

	if !e.RequestRetarget(1) {
		t.Fatalf("expected retarget to be accepted")
	}
	before := e.state.Progress()
	e.OnWheel(10000)

	// 0.05 * (1 + 0.6)
	if got := e.state.Progress() - before; !approx(got, 0.08) {
		t.Fatalf("expected boosted step 0.08, got %v", got)
	}
	if got := e.input.step(10000, DefaultWheelSensitivity); !approx(got, 0.08) {
		t.Fatalf("Step: expected 0.08, got %v", got)
	}
}

func TestInput_ProgressClampedAtEnd(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	for i := 0; i < 100; i++ {
		e.OnWheel(200)
	}
	if got := e.state.Progress(); got != 1 {
		t.Fatalf("expected progress clamped to 1, got %v", got)
	}
}

func TestInput_InvalidDeltasIgnored(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	e.OnWheel(math.NaN())
	e.OnWheel(math.Inf(1))
	e.OnWheel(0)

	if e.state.Phase() != PhaseIdle {
		t.Fatalf("invalid deltas must not start the ride, phase=%v", e.state.Phase())
	}
	if e.state.Progress() != 0 {
		t.Fatalf("invalid deltas must not move progress, got %v", e.state.Progress())
	}
}

func TestInput_TouchDisplacement(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	e.OnTouchStart(500)
	e.OnTouchMove(480) // finger up 20px -> 20 * 0.002 = 0.04
	if got := e.state.Progress(); !approx(got, 0.04) {
		t.Fatalf("expected 0.04 after upward drag, got %v", got)
	}
	if e.state.Phase() != PhaseStarting {
		t.Fatalf("expected first touch displacement to start the ride, got %v", e.state.Phase())
	}

	e.OnTouchMove(490) // finger down 10px from the previous point
	if got := e.state.Progress(); !approx(got, 0.02) {
		t.Fatalf("expected 0.02 after downward drag, got %v", got)
	}
}

func TestInput_TouchMoveWithoutStartOnlyAnchors(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	e.OnTouchMove(300)
	if e.state.Progress() != 0 || e.state.Phase() != PhaseIdle {
		t.Fatalf("move without start should only anchor: progress=%v phase=%v", e.state.Progress(), e.state.Phase())
	}

	e.OnTouchMove(290)
	if got := e.state.Progress(); !approx(got, 0.02) {
		t.Fatalf("expected second move to advance from the anchor, got %v", got)
	}
}

func TestInput_StartLatchFiresOnce(t *testing.T) {
	e, clk := newTestEngine(t, nil)

	var starts int
	e.Subscribe(func(b Broadcast) {
		if pc, ok := b.(PhaseChanged); ok && pc.To == PhaseStarting {
			starts++
		}
	})

	startRiding(t, e)
	driveToArrival(t, e, clk)

	if !e.ReturnToIdle() {
		t.Fatalf("expected ZoomedOut -> Idle")
	}
	e.OnWheel(40)
	if e.state.Phase() != PhaseIdle {
		t.Fatalf("wheel after the first session must not restart the ride, got %v", e.state.Phase())
	}
	if starts != 1 {
		t.Fatalf("expected exactly one Starting transition, got %d", starts)
	}
}
