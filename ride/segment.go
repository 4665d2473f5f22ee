package ride

import "math"

// SegmentMapper maps normalized progress onto the waypoint sequence.
type SegmentMapper struct {
	waypoints []float64
	pull      float64
}

// NewSegmentMapper copies waypoints; callers must pass at least two.
func NewSegmentMapper(waypoints []float64, pull float64) *SegmentMapper {
	wps := make([]float64, len(waypoints))
	copy(wps, waypoints)
	return &SegmentMapper{waypoints: wps, pull: pull}
}

// Segments returns the number of intervals between waypoints.
func (m *SegmentMapper) Segments() int { return len(m.waypoints) - 1 }

// Waypoints returns a copy of the waypoint sequence.
func (m *SegmentMapper) Waypoints() []float64 {
	out := make([]float64, len(m.waypoints))
	copy(out, m.waypoints)
	return out
}

// ValidSegment reports whether idx indexes a segment (0 <= idx < Segments()).
func (m *SegmentMapper) ValidSegment(idx int) bool {
	return idx >= 0 && idx < m.Segments()
}

// SegmentFloat returns the (optionally biased) fractional segment coordinate.
// The retarget bias is applied before easing so a target change never causes
// a jump larger than pull * |target - raw|.
func (m *SegmentMapper) SegmentFloat(progress float64, target int, hasTarget bool) float64 {
	seg := clamp01(progress) * float64(m.Segments())
	if hasTarget && m.ValidSegment(target) {
		seg = seg*(1-m.pull) + float64(target)*m.pull
	}
	return seg
}

// Position maps progress to a scalar coordinate along the waypoints.
func (m *SegmentMapper) Position(progress float64, target int, hasTarget bool) float64 {
	seg := m.SegmentFloat(progress, target, hasTarget)
	segments := m.Segments()

	i := int(math.Floor(seg))
	if i < 0 {
		i = 0
	}
	if i > segments-1 {
		i = segments - 1
	}
	u := clamp01(seg - float64(i))
	e := easeInOutCubic(u)

	a, b := m.waypoints[i], m.waypoints[i+1]
	return a + (b-a)*e
}

// Nearest returns the index of the closest waypoint within tol of pos.
func (m *SegmentMapper) Nearest(pos, tol float64) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, w := range m.waypoints {
		d := math.Abs(pos - w)
		if d <= tol && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// Crossed returns the first waypoint passed strictly between positions from and
// to, in travel order, ignoring skip.
func (m *SegmentMapper) Crossed(from, to float64, skip int) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, w := range m.waypoints {
		if i == skip || (from-w)*(to-w) >= 0 {
			continue
		}
		if d := math.Abs(from - w); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// easeInOutCubic is the standard cubic ease-in-out on [0,1].
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := -2*t + 2
	return 1 - f*f*f/2
}
