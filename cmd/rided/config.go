package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"rideengine/ride"
)

// Config is the top-level YAML configuration for the rided daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume a
// well-formed config. The file is the primary surface; flags are for small overrides.
type Config struct {
	// Ride tuning (track, input, retarget, arrival)
	Ride RideConfig `yaml:"ride"`

	// Camera follow/zoom tuning
	Camera CameraConfig `yaml:"camera"`

	// Linux input devices (mouse wheels)
	Input InputConfig `yaml:"input"`

	// Engine tick loop
	Loop LoopConfig `yaml:"loop"`

	// IPC configuration (ride-ctl and scripts)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP server (state websocket + snapshot)
	HTTP HTTPConfig `yaml:"http"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type RideConfig struct {
	Waypoints        []float64      `yaml:"waypoints"`
	PointsOfInterest map[string]int `yaml:"points_of_interest"`

	MaxStep          float64 `yaml:"max_step"`
	WheelSensitivity float64 `yaml:"wheel_sensitivity"`
	TouchSensitivity float64 `yaml:"touch_sensitivity"`

	RetargetPull       float64 `yaml:"retarget_pull"`
	RetargetDebounceMS int     `yaml:"retarget_debounce_ms"`
	Boost              float64 `yaml:"boost"`
	BoostDurationMS    int     `yaml:"boost_duration_ms"`

	StartThreshold   float64 `yaml:"start_threshold"`
	ArrivalTolerance float64 `yaml:"arrival_tolerance"`
	ArrivalDelayMS   int     `yaml:"arrival_delay_ms"`

	SpeedRef   float64 `yaml:"speed_ref"`
	SpeedAccel float64 `yaml:"speed_accel"`

	PrefersReducedMotion bool `yaml:"prefers_reduced_motion"`
	Muted                bool `yaml:"muted"`
}

// CameraConfig mirrors ride.CameraConfig with YAML-friendly vectors ([x, y, z]).
type CameraConfig struct {
	InitialPosition [3]float64 `yaml:"initial_position"`
	InitialLookAt   [3]float64 `yaml:"initial_look_at"`
	InitialFOV      float64    `yaml:"initial_fov"`

	FollowOffset [3]float64 `yaml:"follow_offset"`
	LookAhead    float64    `yaml:"look_ahead"`
	FollowDamp   float64    `yaml:"follow_damp"`

	ZoomOffset [3]float64 `yaml:"zoom_offset"`
	ZoomFOV    float64    `yaml:"zoom_fov"`
	ZoomDamp   float64    `yaml:"zoom_damp"`

	SettleDistance float64 `yaml:"settle_distance"`
	SettleFOV      float64 `yaml:"settle_fov"`
}

type InputConfig struct {
	// Devices lists evdev nodes to read wheel events from. Empty disables input.
	Devices             []string `yaml:"devices"`
	WheelUnitsPerDetent float64  `yaml:"wheel_units_per_detent"`
}

type LoopConfig struct {
	TickHz int `yaml:"tick_hz"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	// Addr is the listen address; empty disables the HTTP server.
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func vec(v ride.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func toVec(a [3]float64) ride.Vec3 { return ride.Vec3{X: a[0], Y: a[1], Z: a[2]} }

// DefaultConfig returns a fully-populated Config with defaults.
// Ride and camera defaults come from the engine package.
func DefaultConfig() Config {
	rc := ride.DefaultConfig()
	cc := rc.Camera
	return Config{
		Ride: RideConfig{
			Waypoints:          rc.Waypoints,
			PointsOfInterest:   rc.PointsOfInterest,
			MaxStep:            rc.MaxStep,
			WheelSensitivity:   rc.WheelSensitivity,
			TouchSensitivity:   rc.TouchSensitivity,
			RetargetPull:       rc.RetargetPull,
			RetargetDebounceMS: int(rc.RetargetDebounce / time.Millisecond),
			Boost:              rc.Boost,
			BoostDurationMS:    int(rc.BoostDuration / time.Millisecond),
			StartThreshold:     rc.StartThreshold,
			ArrivalTolerance:   rc.ArrivalTolerance,
			ArrivalDelayMS:     int(rc.ArrivalDelay / time.Millisecond),
			SpeedRef:           rc.SpeedRef,
			SpeedAccel:         rc.SpeedAccel,
			Muted:              rc.Muted,
		},
		Camera: CameraConfig{
			InitialPosition: vec(cc.InitialPosition),
			InitialLookAt:   vec(cc.InitialLookAt),
			InitialFOV:      cc.InitialFOV,
			FollowOffset:    vec(cc.FollowOffset),
			LookAhead:       cc.LookAhead,
			FollowDamp:      cc.FollowDamp,
			ZoomOffset:      vec(cc.ZoomOffset),
			ZoomFOV:         cc.ZoomFOV,
			ZoomDamp:        cc.ZoomDamp,
			SettleDistance:  cc.SettleDistance,
			SettleFOV:       cc.SettleFOV,
		},
		Input: InputConfig{
			WheelUnitsPerDetent: defaultWheelUnitsPerDetent,
		},
		Loop: LoopConfig{
			TickHz: defaultTickHz,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		HTTP: HTTPConfig{
			Addr: defaultHTTPAddr,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()
	// yaml.v3 merges into a non-nil map; a file that lists points of interest
	// replaces the default set instead of extending it.
	defaultPOIs := cfg.Ride.PointsOfInterest
	cfg.Ride.PointsOfInterest = nil

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	if cfg.Ride.PointsOfInterest == nil {
		cfg.Ride.PointsOfInterest = defaultPOIs
	}
	return cfg, nil
}

// FlagOverrides holds flag values that replace config file values when set.
// A nil pointer means the flag was not given.
type FlagOverrides struct {
	InputDevice *string
	TickHz      *int

	IPCSocketPath *string
	HTTPAddr      *string

	ReducedMotion *bool
	Muted         *bool

	LogLevel *string
}

// Apply merges the overrides into cfg. Non-nil pointers are applied even when
// they hold a zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		if *o.InputDevice == "" {
			cfg.Input.Devices = nil
		} else {
			cfg.Input.Devices = []string{*o.InputDevice}
		}
	}
	if o.TickHz != nil {
		cfg.Loop.TickHz = *o.TickHz
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.ReducedMotion != nil {
		cfg.Ride.PrefersReducedMotion = *o.ReducedMotion
	}
	if o.Muted != nil {
		cfg.Ride.Muted = *o.Muted
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.WheelUnitsPerDetent <= 0 {
		return errors.New("input.wheel_units_per_detent must be > 0")
	}

	if c.Loop.TickHz <= 0 || c.Loop.TickHz > 1000 {
		return errors.New("loop.tick_hz must be between 1 and 1000")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	if c.Ride.RetargetDebounceMS < 0 {
		return errors.New("ride.retarget_debounce_ms must be >= 0")
	}
	if c.Ride.BoostDurationMS < 0 {
		return errors.New("ride.boost_duration_ms must be >= 0")
	}
	if c.Ride.ArrivalDelayMS < 0 {
		return errors.New("ride.arrival_delay_ms must be >= 0")
	}

	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	rc := c.ToEngineConfig()
	if err := rc.Validate(); err != nil {
		return fmt.Errorf("ride config: %w", err)
	}
	return nil
}

// ToEngineConfig converts file config into the engine's ride.Config.
func (c *Config) ToEngineConfig() ride.Config {
	wps := make([]float64, len(c.Ride.Waypoints))
	copy(wps, c.Ride.Waypoints)
	pois := make(map[string]int, len(c.Ride.PointsOfInterest))
	for k, v := range c.Ride.PointsOfInterest {
		pois[k] = v
	}

	return ride.Config{
		Waypoints:        wps,
		PointsOfInterest: pois,
		MaxStep:          c.Ride.MaxStep,
		WheelSensitivity: c.Ride.WheelSensitivity,
		TouchSensitivity: c.Ride.TouchSensitivity,
		RetargetPull:     c.Ride.RetargetPull,
		RetargetDebounce: time.Duration(c.Ride.RetargetDebounceMS) * time.Millisecond,
		Boost:            c.Ride.Boost,
		BoostDuration:    time.Duration(c.Ride.BoostDurationMS) * time.Millisecond,
		StartThreshold:   c.Ride.StartThreshold,
		ArrivalTolerance: c.Ride.ArrivalTolerance,
		ArrivalDelay:     time.Duration(c.Ride.ArrivalDelayMS) * time.Millisecond,
		SpeedRef:         c.Ride.SpeedRef,
		SpeedAccel:       c.Ride.SpeedAccel,
		Camera: ride.CameraConfig{
			InitialPosition: toVec(c.Camera.InitialPosition),
			InitialLookAt:   toVec(c.Camera.InitialLookAt),
			InitialFOV:      c.Camera.InitialFOV,
			FollowOffset:    toVec(c.Camera.FollowOffset),
			LookAhead:       c.Camera.LookAhead,
			FollowDamp:      c.Camera.FollowDamp,
			ZoomOffset:      toVec(c.Camera.ZoomOffset),
			ZoomFOV:         c.Camera.ZoomFOV,
			ZoomDamp:        c.Camera.ZoomDamp,
			SettleDistance:  c.Camera.SettleDistance,
			SettleFOV:       c.Camera.SettleFOV,
		},
		PrefersReducedMotion: c.Ride.PrefersReducedMotion,
		Muted:                c.Ride.Muted,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
