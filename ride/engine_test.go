package ride

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

var t0 = time.Unix(1000, 0).UTC()

// newTestEngine returns an engine on a manual clock starting at t0.
func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *ManualClock) {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	clk := NewManualClock(t0)
	e, err := New(cfg, WithClock(clk))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, clk
}

// startRiding drives a fresh engine from Idle to Riding with a small wheel step.
func startRiding(t *testing.T, e *Engine) {
	t.Helper()
	e.OnWheel(40) // 40px * 0.0005 = 0.02
	if got := e.state.Phase(); got != PhaseStarting {
		t.Fatalf("expected Starting after first wheel input, got %v", got)
	}
	e.OnTick(1.0 / 60)
	if got := e.state.Phase(); got != PhaseRiding {
		t.Fatalf("expected Riding after progress > 0.01, got %v (progress=%v)", got, e.state.Progress())
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Waypoints = []float64{0}
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for single waypoint")
	}

	cfg = DefaultConfig()
	cfg.Waypoints = []float64{0, math.NaN()}
	_, err := New(cfg)
	if err == nil || !strings.Contains(err.Error(), "waypoints[1]") {
		t.Fatalf("expected waypoints[1] error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.PointsOfInterest = map[string]int{"far": 9}
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for point of interest outside waypoints")
	}
}

func TestEngine_InitialSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	s := e.Snapshot()

	if s.Phase != PhaseIdle || s.Progress != 0 || s.SpeedBoost != 0 || s.BoostToken != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.CurrentTargetIdx != nil {
		t.Fatalf("expected no target, got %d", *s.CurrentTargetIdx)
	}
	if !s.Muted {
		t.Fatalf("expected muted by default")
	}
	if s.Position != 0 {
		t.Fatalf("expected position 0, got %v", s.Position)
	}
}

func TestEngine_BroadcastsFollowStateChanges(t *testing.T) {
	e, clk := newTestEngine(t, nil)

	var got []Broadcast
	unsub := e.Subscribe(func(b Broadcast) { got = append(got, b) })

	e.OnWheel(40)
	if len(got) != 2 {
		t.Fatalf("expected phase + progress broadcasts, got %d: %#v", len(got), got)
	}
	pc, ok := got[0].(PhaseChanged)
	if !ok || pc.From != PhaseIdle || pc.To != PhaseStarting || !pc.At.Equal(t0) {
		t.Fatalf("expected PhaseChanged Idle->Starting at t0, got %#v", got[0])
	}
	if prog, ok := got[1].(ProgressChanged); !ok || math.Abs(prog.Progress-0.02) > 1e-12 {
		t.Fatalf("expected ProgressChanged(0.02), got %#v", got[1])
	}

	e.OnTick(1.0 / 60)
	got = got[:0]

	clk.Advance(10 * time.Millisecond)
	if !e.RequestRetarget(2) {
		t.Fatalf("expected retarget to be accepted")
	}

	var sawTarget, sawBoost bool
	for _, b := range got {
		switch b := b.(type) {
		case TargetChanged:
			sawTarget = b.Index != nil && *b.Index == 2
		case BoostChanged:
			sawBoost = b.SpeedBoost == DefaultBoost && b.Token == 1
		}
	}
	if !sawTarget || !sawBoost {
		t.Fatalf("expected TargetChanged(2) and BoostChanged(0.6,1), got %#v", got)
	}

	unsub()
	got = got[:0]
	e.SetMuted(false)
	if len(got) != 0 {
		t.Fatalf("expected no broadcasts after unsubscribe, got %d", len(got))
	}
}

func TestEngine_MuteBroadcastOnlyOnChange(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	var mutes []MuteChanged
	e.Subscribe(func(b Broadcast) {
		if m, ok := b.(MuteChanged); ok {
			mutes = append(mutes, m)
		}
	})

	e.SetMuted(true) // already muted
	e.SetMuted(false)
	e.SetMuted(false)

	if len(mutes) != 1 || mutes[0].Muted {
		t.Fatalf("expected a single unmute broadcast, got %#v", mutes)
	}
}

func TestEngine_OnTickIgnoresInvalidDelta(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	startRiding(t, e)

	before := e.Camera()
	e.OnTick(math.NaN())
	e.OnTick(-1)
	if e.Camera() != before {
		t.Fatalf("camera moved on invalid dt: %+v -> %+v", before, e.Camera())
	}
}

func TestEngine_SpeedRisesWithInputAndDecays(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	startRiding(t, e)

	for i := 0; i < 10; i++ {
		e.OnWheel(20) // 0.01 per frame
		e.OnTick(1.0 / 60)
	}
	if s := e.Snapshot().Speed; s <= 0.5 {
		t.Fatalf("expected speed > 0.5 while scrolling, got %v", s)
	}

	for i := 0; i < 300; i++ {
		e.OnTick(1.0 / 60)
	}
	if s := e.Snapshot().Speed; s != 0 {
		t.Fatalf("expected speed to settle to 0, got %v", s)
	}
}

func TestEngine_SelectPointOfInterest(t *testing.T) {
	e, clk := newTestEngine(t, nil)

	// Idle: selection starts the ride and records the planet.
	if !e.SelectPointOfInterest("projects") {
		t.Fatalf("expected selection to start the ride")
	}
	if e.state.Phase() != PhaseStarting || e.state.ActivePlanet() != "projects" {
		t.Fatalf("expected Starting/projects, got %v/%q", e.state.Phase(), e.state.ActivePlanet())
	}

	e.OnWheel(40)
	e.OnTick(1.0 / 60)
	if e.state.Phase() != PhaseRiding {
		t.Fatalf("expected Riding, got %v", e.state.Phase())
	}

	// Riding: selection retargets toward the planet's waypoint.
	clk.Advance(time.Second)
	if !e.SelectPointOfInterest("skills") {
		t.Fatalf("expected skills selection to retarget")
	}
	if idx, ok := e.state.CurrentTarget(); !ok || idx != 3 {
		t.Fatalf("expected target 3, got %d (%v)", idx, ok)
	}

	// Unknown ids only update the advisory planet.
	clk.Advance(time.Second)
	if e.SelectPointOfInterest("pluto") {
		t.Fatalf("expected unknown planet not to retarget")
	}
	if e.state.ActivePlanet() != "pluto" {
		t.Fatalf("expected active planet pluto, got %q", e.state.ActivePlanet())
	}
}

func TestSnapshot_JSONUsesPhaseNames(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	startRiding(t, e)

	b, err := json.Marshal(e.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"phase":"Riding"`) {
		t.Fatalf("expected phase name in JSON, got %s", b)
	}
	if !strings.Contains(string(b), `"current_target_idx":null`) {
		t.Fatalf("expected null target in JSON, got %s", b)
	}
}

func TestEngine_RigPlacement(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	startRiding(t, e)
	if got, want := e.RigPosition(), (Vec3{Z: e.Position()}); got != want {
		t.Fatalf("default placement = %+v, want %+v", got, want)
	}

	clk := NewManualClock(t0)
	e, err := New(DefaultConfig(), WithClock(clk), WithRigPlacement(func(pos float64) Vec3 {
		return Vec3{X: 1, Y: 2, Z: pos}
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startRiding(t, e)
	if e.Position() >= 0 {
		t.Fatalf("expected the rig to have moved down the track, got %v", e.Position())
	}
	if got, want := e.RigPosition(), (Vec3{X: 1, Y: 2, Z: e.Position()}); got != want {
		t.Fatalf("custom placement = %+v, want %+v", got, want)
	}
}
