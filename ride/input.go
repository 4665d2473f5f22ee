package ride

import (
	"log/slog"
	"math"
	"time"
)

// InputNormalizer turns raw wheel/touch deltas into bounded progress steps.
//
// Each event is one synchronous read-modify-write of progress, so a tick never
// observes a half-applied step.
type InputNormalizer struct {
	state  *State
	phases *PhaseMachine
	logger *slog.Logger

	maxStep          float64
	wheelSensitivity float64
	touchSensitivity float64

	// started latches the one-shot Idle->Starting request.
	started bool

	touchY      float64
	touchActive bool
}

func newInputNormalizer(st *State, phases *PhaseMachine, cfg Config, logger *slog.Logger) *InputNormalizer {
	return &InputNormalizer{
		state:            st,
		phases:           phases,
		logger:           logger,
		maxStep:          cfg.MaxStep,
		wheelSensitivity: cfg.WheelSensitivity,
		touchSensitivity: cfg.TouchSensitivity,
	}
}

// step converts a raw delta (already in input units) into the signed progress step
// that would be applied with the current boost.
func (n *InputNormalizer) step(raw, sensitivity float64) float64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	step := clamp(raw*sensitivity, -n.maxStep, n.maxStep)
	return step * (1 + n.state.speedBoost)
}

// Wheel applies a wheel deltaY (positive scrolls forward).
func (n *InputNormalizer) Wheel(deltaY float64, now time.Time) {
	n.apply(deltaY, n.wheelSensitivity, now)
}

// TouchStart anchors a touch gesture.
func (n *InputNormalizer) TouchStart(clientY float64) {
	if math.IsNaN(clientY) || math.IsInf(clientY, 0) {
		return
	}
	n.touchY = clientY
	n.touchActive = true
}

// TouchMove advances by the vertical displacement since the previous touch point.
// Dragging upward (decreasing clientY) moves forward.
func (n *InputNormalizer) TouchMove(clientY float64, now time.Time) {
	if math.IsNaN(clientY) || math.IsInf(clientY, 0) {
		return
	}
	if !n.touchActive {
		n.TouchStart(clientY)
		return
	}
	delta := n.touchY - clientY
	n.touchY = clientY
	n.apply(delta, n.touchSensitivity, now)
}

func (n *InputNormalizer) apply(raw, sensitivity float64, now time.Time) {
	if raw == 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return
	}

	if !n.started && n.state.phase == PhaseIdle {
		n.started = true
		n.phases.Transition(PhaseStarting, now)
	}

	step := n.step(raw, sensitivity)
	if step == 0 {
		return
	}
	if n.state.SetProgress(n.state.progress + step) {
		n.logger.Debug("progress clamped", "step", step, "progress", n.state.progress)
	}
}
