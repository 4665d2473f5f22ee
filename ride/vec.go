package ride

import "math"

// Vec3 is a world-space vector. Y is up; the rig travels along -Z.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Len returns the Euclidean length.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dist returns the distance between v and o.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// Damp moves v toward target by factor f in [0,1].
func (v Vec3) Damp(target Vec3, f float64) Vec3 {
	return v.Add(target.Sub(v).Scale(f))
}

// dampFactor is the frame-rate independent exponential smoothing factor 1 - e^(-k*dt).
func dampFactor(k, dt float64) float64 {
	if dt <= 0 || k <= 0 {
		return 0
	}
	return 1 - math.Exp(-k*dt)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clamp01 clamps to [0,1]; NaN becomes 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}
