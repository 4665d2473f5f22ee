package ride

import (
	"fmt"
	"math"
	"time"
)

// Phase is the ride phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseRiding
	PhaseArriving
	PhaseZoomedOut
)

var phaseNames = [...]string{"Idle", "Starting", "Riding", "Arriving", "ZoomedOut"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range phaseNames {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// State is the ride's single mutable record.
//
// It carries no logic beyond the invariants its setters enforce. The Engine owns
// it; each field has exactly one writing component:
//   - progress: InputNormalizer
//   - phase: PhaseMachine
//   - currentTarget, lastRetargetAt, boostToken: RetargetController
//     (PhaseMachine clears the target on arrival)
//   - speedBoost: RetargetController (PhaseMachine zeroes it on arrival)
//
// Not safe for concurrent use; the owning loop serializes all access.
type State struct {
	phase Phase

	progress float64

	speedBoost float64

	currentTarget  int
	hasTarget      bool
	lastRetargetAt time.Time
	boostToken     uint64
	activePlanet   string
	reducedMotion  bool
	muted          bool
}

// NewState returns a State with session defaults.
func NewState(prefersReducedMotion, muted bool) *State {
	return &State{
		phase:         PhaseIdle,
		reducedMotion: prefersReducedMotion,
		muted:         muted,
	}
}

// Phase is the current ride phase.
func (s *State) Phase() Phase { return s.phase }

// Progress is the normalized ride progress in [0,1].
func (s *State) Progress() float64 { return s.progress }

// SpeedBoost is the active step multiplier bonus in [0,1].
func (s *State) SpeedBoost() float64 { return s.speedBoost }

// BoostToken identifies the most recent boost.
func (s *State) BoostToken() uint64 { return s.boostToken }

// ActivePlanet is the last selected point of interest id.
func (s *State) ActivePlanet() string { return s.activePlanet }

// Muted reports the mute flag.
func (s *State) Muted() bool { return s.muted }

// LastRetargetAt is when the last retarget was accepted; zero if never.
func (s *State) LastRetargetAt() time.Time { return s.lastRetargetAt }

// PrefersReducedMotion is fixed for the session.
func (s *State) PrefersReducedMotion() bool { return s.reducedMotion }

// CurrentTarget returns the retarget waypoint index, if any.
func (s *State) CurrentTarget() (int, bool) {
	return s.currentTarget, s.hasTarget
}

// SetProgress stores p clamped to [0,1]. NaN is coerced to 0.
// It reports whether the input had to be coerced.
func (s *State) SetProgress(p float64) bool {
	v := clamp01(p)
	s.progress = v
	return v != p || math.IsNaN(p)
}

// SetSpeedBoost stores b clamped to [0,1].
func (s *State) SetSpeedBoost(b float64) {
	s.speedBoost = clamp01(b)
}

// SetCurrentTarget sets the retarget index. Negative indices clear the target.
func (s *State) SetCurrentTarget(idx int) {
	if idx < 0 {
		s.ClearCurrentTarget()
		return
	}
	s.currentTarget = idx
	s.hasTarget = true
}

// ClearCurrentTarget removes any retarget bias.
func (s *State) ClearCurrentTarget() {
	s.currentTarget = 0
	s.hasTarget = false
}

// SetLastRetargetAt records the time of the last accepted retarget.
func (s *State) SetLastRetargetAt(t time.Time) { s.lastRetargetAt = t }

// NextBoostToken increments and returns the boost token.
func (s *State) NextBoostToken() uint64 {
	s.boostToken++
	return s.boostToken
}

// SetActivePlanet records the last selected point of interest (advisory).
func (s *State) SetActivePlanet(id string) { s.activePlanet = id }

// SetMuted sets the independent mute flag.
func (s *State) SetMuted(m bool) { s.muted = m }

// setPhase is reserved to PhaseMachine.
func (s *State) setPhase(p Phase) { s.phase = p }

// Snapshot is a coherent, copyable view of the ride for consumers.
type Snapshot struct {
	Phase                Phase      `json:"phase"`
	Progress             float64    `json:"progress"`
	Position             float64    `json:"position"`
	Speed                float64    `json:"speed"`
	SpeedBoost           float64    `json:"speed_boost"`
	CurrentTargetIdx     *int       `json:"current_target_idx"`
	LastRetargetAt       time.Time  `json:"last_retarget_at"`
	BoostToken           uint64     `json:"boost_token"`
	ActivePlanet         string     `json:"active_planet,omitempty"`
	PrefersReducedMotion bool       `json:"prefers_reduced_motion"`
	Muted                bool       `json:"muted"`
	Camera               CameraPose `json:"camera"`
}

func (s *State) snapshot() Snapshot {
	snap := Snapshot{
		Phase:                s.phase,
		Progress:             s.progress,
		SpeedBoost:           s.speedBoost,
		LastRetargetAt:       s.lastRetargetAt,
		BoostToken:           s.boostToken,
		ActivePlanet:         s.activePlanet,
		PrefersReducedMotion: s.reducedMotion,
		Muted:                s.muted,
	}
	if s.hasTarget {
		idx := s.currentTarget
		snap.CurrentTargetIdx = &idx
	}
	return snap
}
