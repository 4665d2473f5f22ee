package ride

import (
	"log/slog"
	"time"
)

// transitions is the complete table of legal phase changes.
var transitions = map[Phase][]Phase{
	PhaseIdle:      {PhaseStarting},
	PhaseStarting:  {PhaseRiding, PhaseArriving},
	PhaseRiding:    {PhaseArriving},
	PhaseArriving:  {PhaseZoomedOut},
	PhaseZoomedOut: {PhaseIdle, PhaseStarting},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// PhaseMachine derives phase changes from progress and proximity to waypoints.
type PhaseMachine struct {
	state  *State
	mapper *SegmentMapper
	timers *deferQueue
	logger *slog.Logger

	startThreshold float64
	tolerance      float64
	arrivalDelay   time.Duration

	// zone is the waypoint whose tolerance band the rig currently sits in, or -1.
	// Arrival fires on entering a band, not on starting inside one.
	zone int
	// lastPos is the mapped position at the previous evaluation.
	lastPos float64

	// arrivalGen invalidates arrival->ZoomedOut callbacks from an earlier arrival.
	arrivalGen uint64

	onChange func(from, to Phase, at time.Time)
}

func newPhaseMachine(st *State, mapper *SegmentMapper, timers *deferQueue, cfg Config, logger *slog.Logger) *PhaseMachine {
	return &PhaseMachine{
		state:          st,
		mapper:         mapper,
		timers:         timers,
		logger:         logger,
		startThreshold: cfg.StartThreshold,
		tolerance:      cfg.ArrivalTolerance,
		arrivalDelay:   cfg.ArrivalDelay,
		zone:           -1,
	}
}

// Transition applies from -> to if legal. Illegal requests are no-ops.
func (m *PhaseMachine) Transition(to Phase, now time.Time) bool {
	from := m.state.phase
	if !CanTransition(from, to) {
		m.logger.Debug("phase transition ignored", "from", from, "to", to)
		return false
	}
	m.state.setPhase(to)

	switch to {
	case PhaseStarting:
		// Whatever band we start inside is the departure point.
		m.lastPos = m.position()
		m.zone = m.currentZone()
	case PhaseArriving:
		m.state.SetSpeedBoost(0)
		m.state.ClearCurrentTarget()
		m.arrivalGen++
		gen := m.arrivalGen
		m.timers.after(now, m.arrivalDelay, func(at time.Time) {
			if gen != m.arrivalGen || m.state.phase != PhaseArriving {
				return
			}
			m.Transition(PhaseZoomedOut, at)
		})
	}

	m.logger.Debug("phase transition", "from", from, "to", to)
	if m.onChange != nil {
		m.onChange(from, to, now)
	}
	return true
}

// Evaluate runs the per-frame checks: Starting->Riding on progress and
// arrival on entering any waypoint's tolerance band.
func (m *PhaseMachine) Evaluate(now time.Time) {
	phase := m.state.phase
	if phase != PhaseStarting && phase != PhaseRiding {
		return
	}

	// Several inputs can land between two frames and carry the rig through a
	// band without any sample inside it; passing a waypoint counts as entering.
	pos := m.position()
	zone := m.currentZone()
	entered := zone >= 0 && zone != m.zone
	if !entered {
		_, entered = m.mapper.Crossed(m.lastPos, pos, m.zone)
	}
	m.zone = zone
	m.lastPos = pos

	if entered {
		m.Transition(PhaseArriving, now)
		return
	}
	if phase == PhaseStarting && m.state.progress > m.startThreshold {
		m.Transition(PhaseRiding, now)
	}
}

func (m *PhaseMachine) position() float64 {
	target, has := m.state.CurrentTarget()
	return m.mapper.Position(m.state.progress, target, has)
}

// currentZone reports which waypoint band the mapped position is in, or -1.
func (m *PhaseMachine) currentZone() int {
	idx, ok := m.mapper.Nearest(m.position(), m.tolerance)
	if !ok {
		return -1
	}
	return idx
}
