// Package ride implements the ride progression engine: a normalized progress value
// advanced by wheel/touch input, mapped through a waypoint sequence, and driving a
// phase state machine, retarget boosts and a follow/zoom camera.
//
// An Engine is single-owner. All methods must be called from the same goroutine
// (a render loop or a daemon loop); deferred callbacks such as boost expiry run
// inside those calls, never on their own goroutine.
package ride

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
)

// Engine owns the ride State and wires its collaborators together.
type Engine struct {
	cfg    Config
	clock  Clock
	logger *slog.Logger
	place  func(position float64) Vec3

	state    *State
	timers   *deferQueue
	mapper   *SegmentMapper
	phases   *PhaseMachine
	input    *InputNormalizer
	retarget *RetargetController
	camera   *CameraController

	subs subscribers
	pub  published

	speed        float64
	lastProgress float64
}

// published is what subscribers were last told, used to emit only real changes.
type published struct {
	progress  float64
	position  float64
	speed     float64
	target    int
	hasTarget bool
	boost     float64
	token     uint64
	muted     bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects the time source. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the diagnostics logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRigPlacement maps the scalar ride coordinate to the rig's world position.
// The default places the rig on the Z axis.
func WithRigPlacement(fn func(position float64) Vec3) Option {
	return func(e *Engine) {
		if fn != nil {
			e.place = fn
		}
	}
}

// New validates cfg and builds an Engine in the Idle phase.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ride config: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		clock:  SystemClock{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		place:  func(pos float64) Vec3 { return Vec3{Z: pos} },
	}
	for _, opt := range opts {
		opt(e)
	}

	e.state = NewState(cfg.PrefersReducedMotion, cfg.Muted)
	e.timers = &deferQueue{}
	e.mapper = NewSegmentMapper(cfg.Waypoints, cfg.RetargetPull)
	e.phases = newPhaseMachine(e.state, e.mapper, e.timers, cfg, e.logger)
	e.input = newInputNormalizer(e.state, e.phases, cfg, e.logger)
	e.retarget = newRetargetController(e.state, e.mapper, e.timers, cfg, e.logger)
	e.camera = newCameraController(cfg.Camera, cfg.PrefersReducedMotion)

	e.phases.onChange = func(from, to Phase, at time.Time) {
		e.subs.publish(PhaseChanged{From: from, To: to, At: at})
	}

	e.pub = published{
		position: e.Position(),
		muted:    e.state.muted,
	}
	return e, nil
}

// Subscribe registers fn for state broadcasts. fn runs synchronously on the
// owning goroutine and must not call back into the Engine. The returned func
// unsubscribes.
func (e *Engine) Subscribe(fn func(Broadcast)) func() {
	return e.subs.add(fn)
}

// OnTick advances one rendered frame of dt seconds.
func (e *Engine) OnTick(dt float64) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		e.logger.Debug("invalid frame delta ignored", "dt", dt)
		dt = 0
	}
	now := e.clock.Now()
	e.timers.runDue(now)

	e.phases.Evaluate(now)
	e.updateSpeed(dt)
	e.camera.Update(e.state.phase, e.place(e.Position()), dt)

	e.flush(now)
}

// OnWheel applies a wheel deltaY in pixels; positive moves forward.
func (e *Engine) OnWheel(deltaY float64) {
	now := e.begin()
	e.input.Wheel(deltaY, now)
	e.flush(now)
}

// OnTouchStart anchors a vertical touch gesture.
func (e *Engine) OnTouchStart(clientY float64) {
	now := e.begin()
	e.input.TouchStart(clientY)
	e.flush(now)
}

// OnTouchMove applies vertical touch displacement since the previous point.
func (e *Engine) OnTouchMove(clientY float64) {
	now := e.begin()
	e.input.TouchMove(clientY, now)
	e.flush(now)
}

// RequestRetarget biases the ride toward waypoint idx and applies a temporary
// boost. Returns false when the request was rejected (not riding, invalid
// index, or debounced).
func (e *Engine) RequestRetarget(idx int) bool {
	now := e.begin()
	ok := e.retarget.Request(idx, now)
	e.flush(now)
	return ok
}

// SelectPointOfInterest records the selection and reacts to it by phase:
// Idle or ZoomedOut (re)starts the ride, Riding retargets toward the point's
// waypoint. It reports whether the selection started the ride or retargeted it.
func (e *Engine) SelectPointOfInterest(id string) bool {
	now := e.begin()
	defer e.flush(now)

	e.state.SetActivePlanet(id)
	idx, known := e.cfg.PointsOfInterest[id]
	sel := PlanetSelected{ID: id, At: now}
	if known {
		i := idx
		sel.Index = &i
	}
	e.subs.publish(sel)

	switch e.state.phase {
	case PhaseIdle, PhaseZoomedOut:
		return e.phases.Transition(PhaseStarting, now)
	case PhaseRiding:
		if !known {
			e.logger.Debug("unknown point of interest", "id", id)
			return false
		}
		return e.retarget.Request(idx, now)
	default:
		return false
	}
}

// ReturnToIdle hands the camera back to the user after the ride has zoomed out.
func (e *Engine) ReturnToIdle() bool {
	now := e.begin()
	ok := e.phases.Transition(PhaseIdle, now)
	e.flush(now)
	return ok
}

// SetMuted sets the mute flag.
func (e *Engine) SetMuted(m bool) {
	now := e.begin()
	e.state.SetMuted(m)
	e.flush(now)
}

// Position returns the mapped ride coordinate for the current state.
func (e *Engine) Position() float64 {
	target, has := e.state.CurrentTarget()
	return e.mapper.Position(e.state.progress, target, has)
}

// RigPosition returns the rig's world position.
func (e *Engine) RigPosition() Vec3 { return e.place(e.Position()) }

// Camera returns the current camera pose.
func (e *Engine) Camera() CameraPose { return e.camera.Pose() }

// CameraLocked reports whether the zoomed-out camera has settled.
func (e *Engine) CameraLocked() bool { return e.camera.Locked() }

// Waypoints returns a copy of the configured waypoint sequence.
func (e *Engine) Waypoints() []float64 { return e.mapper.Waypoints() }

// PointsOfInterest returns a copy of the POI -> waypoint index mapping.
func (e *Engine) PointsOfInterest() map[string]int {
	out := make(map[string]int, len(e.cfg.PointsOfInterest))
	for k, v := range e.cfg.PointsOfInterest {
		out[k] = v
	}
	return out
}

// Snapshot returns a coherent copy of the observable ride state.
func (e *Engine) Snapshot() Snapshot {
	s := e.state.snapshot()
	s.Position = e.Position()
	s.Speed = e.speed
	s.Camera = e.camera.Pose()
	return s
}

// begin fires due deferred callbacks before an input is applied, so an expired
// boost never scales a step that arrives after its deadline.
func (e *Engine) begin() time.Time {
	now := e.clock.Now()
	e.timers.runDue(now)
	return now
}

// updateSpeed eases the normalized speed output toward the progress rate.
func (e *Engine) updateSpeed(dt float64) {
	p := e.state.progress
	if dt > 0 {
		rate := math.Abs(p-e.lastProgress) / dt
		target := clamp01(rate / e.cfg.SpeedRef)
		e.speed += (target - e.speed) * dampFactor(e.cfg.SpeedAccel, dt)
		if e.speed < 1e-4 {
			e.speed = 0
		}
	}
	e.lastProgress = p
}

// flush publishes whatever changed since the previous flush.
func (e *Engine) flush(now time.Time) {
	st := e.state
	pos := e.Position()

	if st.progress != e.pub.progress || pos != e.pub.position || math.Abs(e.speed-e.pub.speed) > 1e-3 ||
		(e.speed == 0 && e.pub.speed != 0) {
		e.pub.progress, e.pub.position, e.pub.speed = st.progress, pos, e.speed
		e.subs.publish(ProgressChanged{Progress: st.progress, Position: pos, Speed: e.speed, At: now})
	}

	if st.hasTarget != e.pub.hasTarget || (st.hasTarget && st.currentTarget != e.pub.target) {
		e.pub.hasTarget, e.pub.target = st.hasTarget, st.currentTarget
		tc := TargetChanged{At: now}
		if st.hasTarget {
			idx := st.currentTarget
			tc.Index = &idx
		}
		e.subs.publish(tc)
	}

	if st.speedBoost != e.pub.boost || st.boostToken != e.pub.token {
		e.pub.boost, e.pub.token = st.speedBoost, st.boostToken
		e.subs.publish(BoostChanged{SpeedBoost: st.speedBoost, Token: st.boostToken, At: now})
	}

	if st.muted != e.pub.muted {
		e.pub.muted = st.muted
		e.subs.publish(MuteChanged{Muted: st.muted, At: now})
	}
}
