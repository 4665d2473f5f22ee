package ride

import (
	"math"
	"math/rand"
	"testing"
)

func TestState_Defaults(t *testing.T) {
	s := NewState(true, false)
	if s.Phase() != PhaseIdle {
		t.Fatalf("expected Idle, got %v", s.Phase())
	}
	if s.Progress() != 0 || s.SpeedBoost() != 0 || s.BoostToken() != 0 {
		t.Fatalf("expected zeroed progress/boost/token")
	}
	if _, ok := s.CurrentTarget(); ok {
		t.Fatalf("expected no target")
	}
	if !s.PrefersReducedMotion() || s.Muted() {
		t.Fatalf("expected reducedMotion=true muted=false")
	}
}

func TestState_SetProgressClamps(t *testing.T) {
	s := NewState(false, true)

	cases := []struct {
		in      float64
		want    float64
		clamped bool
	}{
		{-1, 0, true},
		{2, 1, true},
		{0.5, 0.5, false},
		{math.NaN(), 0, true},
		{math.Inf(1), 1, true},
		{math.Inf(-1), 0, true},
		{1, 1, false},
	}
	for _, c := range cases {
		clamped := s.SetProgress(c.in)
		if s.Progress() != c.want || clamped != c.clamped {
			t.Fatalf("SetProgress(%v): got (%v, clamped=%v), want (%v, clamped=%v)", c.in, s.Progress(), clamped, c.want, c.clamped)
		}
	}
}

func TestState_ProgressAlwaysInUnitInterval(t *testing.T) {
	s := NewState(false, true)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		var v float64
		switch rng.Intn(4) {
		case 0:
			v = math.NaN()
		case 1:
			v = s.Progress() + (rng.Float64()-0.5)*0.2
		default:
			v = (rng.Float64() - 0.5) * 10
		}
		s.SetProgress(v)
		if p := s.Progress(); p < 0 || p > 1 || math.IsNaN(p) {
			t.Fatalf("iteration %d: progress %v escaped [0,1] after SetProgress(%v)", i, p, v)
		}
	}
}

func TestState_TargetAndBoost(t *testing.T) {
	s := NewState(false, true)

	s.SetCurrentTarget(2)
	if idx, ok := s.CurrentTarget(); !ok || idx != 2 {
		t.Fatalf("expected target 2, got %d (%v)", idx, ok)
	}
	s.SetCurrentTarget(-1)
	if _, ok := s.CurrentTarget(); ok {
		t.Fatalf("negative index should clear the target")
	}

	s.SetSpeedBoost(1.7)
	if s.SpeedBoost() != 1 {
		t.Fatalf("expected boost clamped to 1, got %v", s.SpeedBoost())
	}

	if a, b := s.NextBoostToken(), s.NextBoostToken(); a != 1 || b != 2 {
		t.Fatalf("expected tokens 1,2 got %d,%d", a, b)
	}
}

func TestPhase_TextRoundTrip(t *testing.T) {
	for p := PhaseIdle; p <= PhaseZoomedOut; p++ {
		b, err := p.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", p, err)
		}
		var got Phase
		if err := got.UnmarshalText(b); err != nil || got != p {
			t.Fatalf("round trip %v: got %v err=%v", p, got, err)
		}
	}
	var p Phase
	if err := p.UnmarshalText([]byte("Flying")); err == nil {
		t.Fatalf("expected error for unknown phase")
	}
	if s := Phase(42).String(); s != "Phase(42)" {
		t.Fatalf("unexpected String for out-of-range phase: %s", s)
	}
}

func TestState_Accessors(t *testing.T) {
	s := NewState(true, false)
	s.SetProgress(0.4)
	s.SetSpeedBoost(0.6)
	tok := s.NextBoostToken()
	s.SetActivePlanet("skills")
	s.SetMuted(true)
	s.SetLastRetargetAt(t0)

	if s.Phase() != PhaseIdle || s.Progress() != 0.4 || s.SpeedBoost() != 0.6 ||
		s.BoostToken() != tok || s.ActivePlanet() != "skills" || !s.Muted() ||
		!s.LastRetargetAt().Equal(t0) || !s.PrefersReducedMotion() {
		t.Fatalf("accessors disagree with setters: %+v", s.snapshot())
	}
}
