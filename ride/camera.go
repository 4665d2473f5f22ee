package ride

import "math"

// CameraPose is the camera output consumed by the renderer.
type CameraPose struct {
	Position Vec3    `json:"position"`
	LookAt   Vec3    `json:"look_at"`
	FOV      float64 `json:"fov"`
}

// CameraController eases the camera toward a phase-dependent goal each frame.
type CameraController struct {
	cfg           CameraConfig
	reducedMotion bool

	pose CameraPose

	// locked is set once the zoomed-out view settles and cleared when the phase
	// leaves ZoomedOut.
	locked bool
}

func newCameraController(cfg CameraConfig, reducedMotion bool) *CameraController {
	return &CameraController{
		cfg:           cfg,
		reducedMotion: reducedMotion,
		pose: CameraPose{
			Position: cfg.InitialPosition,
			LookAt:   cfg.InitialLookAt,
			FOV:      cfg.InitialFOV,
		},
	}
}

// Pose returns the current camera pose.
func (c *CameraController) Pose() CameraPose { return c.pose }

// Locked reports whether the zoomed-out view has settled.
func (c *CameraController) Locked() bool { return c.locked }

// SetPose overrides the pose, e.g. after the user orbits the free camera while idle.
func (c *CameraController) SetPose(p CameraPose) { c.pose = p }

func (c *CameraController) factor(k, dt float64) float64 {
	if c.reducedMotion {
		return 1
	}
	return dampFactor(k, dt)
}

// Update advances the camera one frame for the given phase and rig position.
// It reports whether the pose was written.
func (c *CameraController) Update(phase Phase, rig Vec3, dt float64) bool {
	if phase != PhaseZoomedOut {
		c.locked = false
	}

	switch phase {
	// Starting follows too, so the first ride frame eases away from the hero pose.
	case PhaseStarting, PhaseRiding, PhaseArriving:
		f := c.factor(c.cfg.FollowDamp, dt)
		goal := rig.Add(c.cfg.FollowOffset)
		look := rig.Add(Vec3{Z: -c.cfg.LookAhead})
		c.pose.Position = c.pose.Position.Damp(goal, f)
		c.pose.LookAt = c.pose.LookAt.Damp(look, f)
		return true

	case PhaseZoomedOut:
		if c.locked {
			return false
		}
		f := c.factor(c.cfg.ZoomDamp, dt)
		goal := rig.Add(c.cfg.ZoomOffset)
		c.pose.Position = c.pose.Position.Damp(goal, f)
		c.pose.LookAt = c.pose.LookAt.Damp(rig, f)
		c.pose.FOV += (c.cfg.ZoomFOV - c.pose.FOV) * f

		if c.pose.Position.Dist(goal) < c.cfg.SettleDistance &&
			math.Abs(c.cfg.ZoomFOV-c.pose.FOV) < c.cfg.SettleFOV {
			c.locked = true
		}
		return true

	default:
		// Idle leaves the camera to the user.
		return false
	}
}
