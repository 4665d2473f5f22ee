package ride

import "time"

// Broadcast is a state change published to subscribers.
type Broadcast interface {
	broadcastMarker()
}

// PhaseChanged is emitted on every accepted phase transition.
type PhaseChanged struct {
	From Phase
	To   Phase
	At   time.Time
}

// ProgressChanged is emitted when progress or the mapped position moves.
type ProgressChanged struct {
	Progress float64
	Position float64
	Speed    float64
	At       time.Time
}

// TargetChanged is emitted when the retarget index is set or cleared.
// Index is nil when no target is active.
type TargetChanged struct {
	Index *int
	At    time.Time
}

// BoostChanged is emitted when the speed boost is applied or expires.
type BoostChanged struct {
	SpeedBoost float64
	Token      uint64
	At         time.Time
}

// MuteChanged is emitted when the mute flag flips.
type MuteChanged struct {
	Muted bool
	At    time.Time
}

// PlanetSelected is emitted when a point of interest is selected.
type PlanetSelected struct {
	ID    string
	Index *int
	At    time.Time
}

func (PhaseChanged) broadcastMarker()    {}
func (ProgressChanged) broadcastMarker() {}
func (TargetChanged) broadcastMarker()   {}
func (BoostChanged) broadcastMarker()    {}
func (MuteChanged) broadcastMarker()     {}
func (PlanetSelected) broadcastMarker()  {}

// subscribers is an ordered registry of broadcast callbacks.
type subscribers struct {
	next uint64
	subs []subscriber
}

type subscriber struct {
	id uint64
	fn func(Broadcast)
}

func (s *subscribers) add(fn func(Broadcast)) func() {
	s.next++
	id := s.next
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *subscribers) publish(b Broadcast) {
	for _, sub := range s.subs {
		sub.fn(b)
	}
}
