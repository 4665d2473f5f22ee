package ride

import (
	"math"
	"testing"
)

func newDefaultMapper() *SegmentMapper {
	return NewSegmentMapper(DefaultWaypoints, DefaultRetargetPull)
}

func TestSegmentMapper_ExactWaypoint(t *testing.T) {
	m := newDefaultMapper()
	// 0.5 * 4 segments = 2.0 -> waypoint[2], eased u = 0.
	if got := m.Position(0.5, 0, false); got != -48 {
		t.Fatalf("expected -48, got %v", got)
	}
	if got := m.Position(0, 0, false); got != 0 {
		t.Fatalf("expected 0 at start, got %v", got)
	}
	if got := m.Position(1, 0, false); got != -92 {
		t.Fatalf("expected -92 at end, got %v", got)
	}
}

func TestSegmentMapper_RetargetBias(t *testing.T) {
	m := newDefaultMapper()

	seg := m.SegmentFloat(0.6, 1, true)
	if math.Abs(seg-2.19) > 1e-9 {
		t.Fatalf("expected biased segment 2.19, got %v", seg)
	}

	eased := easeInOutCubic(0.19)
	if math.Abs(eased-4*0.19*0.19*0.19) > 1e-12 {
		t.Fatalf("unexpected eased value %v", eased)
	}

	want := -48 + (-70+48)*eased
	got := m.Position(0.6, 1, true)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got >= -48 || got <= -49 {
		t.Fatalf("expected a small move from -48 toward -70, got %v", got)
	}
}

func TestSegmentMapper_InvalidTargetIgnored(t *testing.T) {
	m := newDefaultMapper()
	plain := m.Position(0.6, 0, false)
	for _, idx := range []int{-1, 4, 99} {
		if got := m.Position(0.6, idx, true); got != plain {
			t.Fatalf("target %d should not bias: got %v want %v", idx, got, plain)
		}
	}
}

// maxSlope bounds |dPosition/dSegmentFloat|: cubic ease-in-out peaks at 3 (12t² at t=0.5).
func maxSlope(wps []float64) float64 {
	var span float64
	for i := 1; i < len(wps); i++ {
		span = math.Max(span, math.Abs(wps[i]-wps[i-1]))
	}
	return 3 * span
}

func TestSegmentMapper_ContinuousInProgress(t *testing.T) {
	m := newDefaultMapper()
	const dp = 1e-4
	bound := maxSlope(DefaultWaypoints)*float64(m.Segments())*dp + 1e-9

	for _, target := range []struct {
		idx int
		has bool
	}{{0, false}, {1, true}, {3, true}} {
		prev := m.Position(0, target.idx, target.has)
		for p := dp; p <= 1; p += dp {
			cur := m.Position(p, target.idx, target.has)
			if d := math.Abs(cur - prev); d > bound {
				t.Fatalf("target=%v: jump %v at progress %v exceeds %v", target, d, p, bound)
			}
			prev = cur
		}
	}
}

func TestSegmentMapper_TargetChangeJumpBounded(t *testing.T) {
	m := newDefaultMapper()
	slope := maxSlope(DefaultWaypoints)

	for p := 0.0; p <= 1; p += 0.01 {
		for idx := 0; idx < m.Segments(); idx++ {
			raw := p * float64(m.Segments())
			bias := DefaultRetargetPull * math.Abs(float64(idx)-raw)

			before := m.Position(p, 0, false)
			after := m.Position(p, idx, true)

			if d := math.Abs(m.SegmentFloat(p, idx, true) - raw); d > bias+1e-9 {
				t.Fatalf("p=%v idx=%d: segment shift %v exceeds bias %v", p, idx, d, bias)
			}
			if d := math.Abs(after - before); d > slope*bias+1e-9 {
				t.Fatalf("p=%v idx=%d: position jump %v exceeds %v", p, idx, d, slope*bias)
			}
		}
	}
}

func TestSegmentMapper_Nearest(t *testing.T) {
	m := newDefaultMapper()
	if idx, ok := m.Nearest(-47.8, 0.25); !ok || idx != 2 {
		t.Fatalf("expected waypoint 2, got %d (%v)", idx, ok)
	}
	if _, ok := m.Nearest(-47.7, 0.25); ok {
		t.Fatalf("expected no waypoint within tolerance of -47.7")
	}
	if idx, ok := m.Nearest(-24.76, 0.25); !ok || idx != 1 {
		t.Fatalf("expected interior waypoint 1, got %d (%v)", idx, ok)
	}
}

func TestEaseInOutCubic_Endpoints(t *testing.T) {
	if easeInOutCubic(0) != 0 || easeInOutCubic(1) != 1 || easeInOutCubic(0.5) != 0.5 {
		t.Fatalf("unexpected endpoints: %v %v %v", easeInOutCubic(0), easeInOutCubic(1), easeInOutCubic(0.5))
	}
}

func TestSegmentMapper_Crossed(t *testing.T) {
	m := newDefaultMapper()

	if idx, ok := m.Crossed(-21.7, -27.0, -1); !ok || idx != 1 {
		t.Fatalf("expected waypoint 1 crossed, got %d %v", idx, ok)
	}
	// Travel order: moving back from -50 to -20 passes -48 before -25.
	if idx, ok := m.Crossed(-50, -20, -1); !ok || idx != 2 {
		t.Fatalf("expected waypoint 2 crossed first, got %d %v", idx, ok)
	}
	if _, ok := m.Crossed(-24.9, -25.1, 1); ok {
		t.Fatalf("the skipped waypoint must not count")
	}
	if _, ok := m.Crossed(-10, -20, -1); ok {
		t.Fatalf("no waypoint between -10 and -20")
	}
	// Touching a waypoint is not passing it.
	if _, ok := m.Crossed(0, -5, -1); ok {
		t.Fatalf("leaving from exactly waypoint 0 is not a crossing")
	}
}
