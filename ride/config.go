package ride

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Defaults mirror the tuned values of the ride experience. The arrival tolerance and the
// retarget debounce are empirical; treat them as defaults, not contracts.
const (
	DefaultMaxStep          = 0.05
	DefaultWheelSensitivity = 0.0005 // progress per wheel pixel
	DefaultTouchSensitivity = 0.002  // progress per touch pixel

	DefaultRetargetPull     = 0.15
	DefaultRetargetDebounce = 300 * time.Millisecond
	DefaultBoost            = 0.6
	DefaultBoostDuration    = 800 * time.Millisecond

	DefaultStartThreshold   = 0.01
	DefaultArrivalTolerance = 0.25
	DefaultArrivalDelay     = 500 * time.Millisecond

	DefaultSpeedRef   = 0.25 // progress/sec considered "full speed"
	DefaultSpeedAccel = 12.0
)

// DefaultWaypoints is the five-stop ride track.
var DefaultWaypoints = []float64{0, -25, -48, -70, -92}

// DefaultPointsOfInterest maps selectable planets to waypoint indices.
var DefaultPointsOfInterest = map[string]int{
	"projects":   1,
	"experience": 2,
	"skills":     3,
	"contact":    4,
}

// CameraConfig tunes the CameraController.
type CameraConfig struct {
	// Initial pose before the first managed write.
	InitialPosition Vec3
	InitialLookAt   Vec3
	InitialFOV      float64

	FollowOffset Vec3    // behind/above the rig while riding
	LookAhead    float64 // look-at distance in front of the rig (along -Z)
	FollowDamp   float64 // k in 1 - e^(-k*dt)

	ZoomOffset Vec3 // pull-back offset when zoomed out
	ZoomFOV    float64
	ZoomDamp   float64

	// Settle thresholds for the ZoomedOut lock latch.
	SettleDistance float64
	SettleFOV      float64
}

// Config is fixed at engine construction.
type Config struct {
	Waypoints        []float64
	PointsOfInterest map[string]int

	MaxStep          float64
	WheelSensitivity float64
	TouchSensitivity float64

	RetargetPull     float64
	RetargetDebounce time.Duration
	Boost            float64
	BoostDuration    time.Duration

	StartThreshold   float64
	ArrivalTolerance float64
	ArrivalDelay     time.Duration

	SpeedRef   float64
	SpeedAccel float64

	Camera CameraConfig

	// PrefersReducedMotion is read once at session start.
	PrefersReducedMotion bool
	// Muted is the initial mute flag.
	Muted bool
}

// DefaultCameraConfig returns the follow/zoom camera defaults.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		InitialPosition: Vec3{0, 1.5, 7},
		InitialLookAt:   Vec3{0, 1, 0},
		InitialFOV:      45,
		FollowOffset:    Vec3{0, 2, 6},
		LookAhead:       2,
		FollowDamp:      8,
		ZoomOffset:      Vec3{0, 8, 22},
		ZoomFOV:         60,
		ZoomDamp:        3,
		SettleDistance:  0.01,
		SettleFOV:       0.05,
	}
}

// DefaultConfig returns a fully-populated Config.
func DefaultConfig() Config {
	wps := make([]float64, len(DefaultWaypoints))
	copy(wps, DefaultWaypoints)
	pois := make(map[string]int, len(DefaultPointsOfInterest))
	for k, v := range DefaultPointsOfInterest {
		pois[k] = v
	}
	return Config{
		Waypoints:        wps,
		PointsOfInterest: pois,
		MaxStep:          DefaultMaxStep,
		WheelSensitivity: DefaultWheelSensitivity,
		TouchSensitivity: DefaultTouchSensitivity,
		RetargetPull:     DefaultRetargetPull,
		RetargetDebounce: DefaultRetargetDebounce,
		Boost:            DefaultBoost,
		BoostDuration:    DefaultBoostDuration,
		StartThreshold:   DefaultStartThreshold,
		ArrivalTolerance: DefaultArrivalTolerance,
		ArrivalDelay:     DefaultArrivalDelay,
		SpeedRef:         DefaultSpeedRef,
		SpeedAccel:       DefaultSpeedAccel,
		Camera:           DefaultCameraConfig(),
		Muted:            true,
	}
}

// Validate checks construction-time invariants.
func (c *Config) Validate() error {
	if len(c.Waypoints) < 2 {
		return fmt.Errorf("waypoints: need at least 2, got %d", len(c.Waypoints))
	}
	for i, w := range c.Waypoints {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("waypoints[%d] is not finite", i)
		}
	}
	segments := len(c.Waypoints) - 1
	for id, idx := range c.PointsOfInterest {
		if id == "" {
			return errors.New("points_of_interest: empty id")
		}
		if idx < 0 || idx > segments {
			return fmt.Errorf("points_of_interest[%s]: index %d outside waypoints [0,%d]", id, idx, segments)
		}
	}
	if c.MaxStep <= 0 {
		return errors.New("max_step must be > 0")
	}
	if c.WheelSensitivity < 0 || c.TouchSensitivity < 0 {
		return errors.New("wheel/touch sensitivity must be >= 0")
	}
	if c.RetargetPull < 0 || c.RetargetPull > 1 {
		return errors.New("retarget_pull must be within [0,1]")
	}
	if c.RetargetDebounce < 0 {
		return errors.New("retarget_debounce must be >= 0")
	}
	if c.Boost < 0 || c.Boost > 1 {
		return errors.New("boost must be within [0,1]")
	}
	if c.BoostDuration <= 0 {
		return errors.New("boost_duration must be > 0")
	}
	if c.StartThreshold < 0 || c.StartThreshold >= 1 {
		return errors.New("start_threshold must be within [0,1)")
	}
	if c.ArrivalTolerance <= 0 {
		return errors.New("arrival_tolerance must be > 0")
	}
	if c.ArrivalDelay < 0 {
		return errors.New("arrival_delay must be >= 0")
	}
	if c.SpeedRef <= 0 {
		return errors.New("speed_ref must be > 0")
	}
	if c.Camera.FollowDamp < 0 || c.Camera.ZoomDamp < 0 {
		return errors.New("camera damping must be >= 0")
	}
	if c.Camera.ZoomFOV <= 0 || c.Camera.ZoomFOV >= 180 || c.Camera.InitialFOV <= 0 || c.Camera.InitialFOV >= 180 {
		return errors.New("camera fov must be within (0,180)")
	}
	return nil
}
