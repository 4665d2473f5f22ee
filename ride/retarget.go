package ride

import (
	"log/slog"
	"time"
)

// RetargetController gates point-of-interest retargets and owns the boost lifecycle.
//
// A boost expiry carries the token that was current when it was scheduled. When it
// fires it compares against the live token and only resets the boost if nothing newer
// has been issued since.
type RetargetController struct {
	state  *State
	mapper *SegmentMapper
	timers *deferQueue
	logger *slog.Logger

	debounce      time.Duration
	boost         float64
	boostDuration time.Duration
}

func newRetargetController(st *State, mapper *SegmentMapper, timers *deferQueue, cfg Config, logger *slog.Logger) *RetargetController {
	return &RetargetController{
		state:         st,
		mapper:        mapper,
		timers:        timers,
		logger:        logger,
		debounce:      cfg.RetargetDebounce,
		boost:         cfg.Boost,
		boostDuration: cfg.BoostDuration,
	}
}

// Request asks to bias the ride toward waypoint idx. It returns true when accepted.
// Rejections (wrong phase, invalid index, inside the debounce window) are silent.
func (r *RetargetController) Request(idx int, now time.Time) bool {
	if r.state.phase != PhaseRiding {
		r.logger.Debug("retarget rejected", "reason", "phase", "phase", r.state.phase, "index", idx)
		return false
	}
	if !r.mapper.ValidSegment(idx) {
		r.logger.Debug("retarget rejected", "reason", "index", "index", idx, "segments", r.mapper.Segments())
		return false
	}
	if last := r.state.lastRetargetAt; !last.IsZero() && now.Sub(last) < r.debounce {
		r.logger.Debug("retarget rejected", "reason", "debounce", "index", idx, "since_last", now.Sub(last))
		return false
	}

	r.state.SetCurrentTarget(idx)
	r.state.SetLastRetargetAt(now)
	token := r.state.NextBoostToken()
	r.state.SetSpeedBoost(r.boost)

	r.timers.after(now, r.boostDuration, func(at time.Time) {
		r.expire(token, at)
	})

	r.logger.Debug("retarget accepted", "index", idx, "boost_token", token)
	return true
}

// expire resets the boost only if token is still the live one.
func (r *RetargetController) expire(token uint64, at time.Time) {
	if r.state.boostToken != token {
		r.logger.Debug("stale boost expiry skipped", "token", token, "live_token", r.state.boostToken, "at", at)
		return
	}
	r.state.SetSpeedBoost(0)
}
