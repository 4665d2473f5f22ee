package ride

import (
	"math"
	"testing"
)

func vecApprox(a, b Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

func TestCamera_FollowDampingStep(t *testing.T) {
	cfg := DefaultCameraConfig()
	c := newCameraController(cfg, false)
	rig := Vec3{Z: -10}
	dt := 0.1

	if !c.Update(PhaseRiding, rig, dt) {
		t.Fatalf("expected Riding to write the pose")
	}

	f := 1 - math.Exp(-cfg.FollowDamp*dt)
	goal := rig.Add(cfg.FollowOffset)
	want := cfg.InitialPosition.Add(goal.Sub(cfg.InitialPosition).Scale(f))
	if p := c.Pose().Position; !vecApprox(p, want, 1e-12) {
		t.Fatalf("expected position %+v, got %+v", want, p)
	}

	look := Vec3{Z: -10 - cfg.LookAhead}
	wantLook := cfg.InitialLookAt.Add(look.Sub(cfg.InitialLookAt).Scale(f))
	if l := c.Pose().LookAt; !vecApprox(l, wantLook, 1e-12) {
		t.Fatalf("expected look-at %+v, got %+v", wantLook, l)
	}
}

func TestCamera_ReducedMotionSnaps(t *testing.T) {
	cfg := DefaultCameraConfig()
	c := newCameraController(cfg, true)
	rig := Vec3{Z: -48}

	c.Update(PhaseRiding, rig, 1.0/60)
	if p := c.Pose().Position; !vecApprox(p, rig.Add(cfg.FollowOffset), 1e-9) {
		t.Fatalf("expected reduced motion to snap to the goal, got %+v", p)
	}

	c.Update(PhaseZoomedOut, rig, 1.0/60)
	pose := c.Pose()
	if !vecApprox(pose.Position, rig.Add(cfg.ZoomOffset), 1e-9) || math.Abs(pose.FOV-cfg.ZoomFOV) > 1e-9 {
		t.Fatalf("expected zoomed-out goal in one frame, got %+v", pose)
	}
	if !c.Locked() {
		t.Fatalf("expected settled view to lock")
	}
}

func TestCamera_IdleLeavesPoseAlone(t *testing.T) {
	c := newCameraController(DefaultCameraConfig(), false)
	orbit := CameraPose{Position: Vec3{3, 4, 5}, LookAt: Vec3{1, 1, 1}, FOV: 50}
	c.SetPose(orbit)

	if c.Update(PhaseIdle, Vec3{Z: -25}, 0.5) {
		t.Fatalf("Idle must not write the pose")
	}
	if c.Pose() != orbit {
		t.Fatalf("expected pose unchanged, got %+v", c.Pose())
	}
}

func TestCamera_SettleLockAndRelease(t *testing.T) {
	cfg := DefaultCameraConfig()
	c := newCameraController(cfg, false)
	rig := Vec3{Z: -25}

	settled := -1
	for i := 0; i < 2000; i++ {
		c.Update(PhaseZoomedOut, rig, 1.0/60)
		if c.Locked() {
			settled = i
			break
		}
	}
	if settled < 0 {
		t.Fatalf("zoomed-out camera never settled: %+v", c.Pose())
	}
	if math.Abs(c.Pose().FOV-cfg.ZoomFOV) >= cfg.SettleFOV {
		t.Fatalf("locked before FOV settled: %v", c.Pose().FOV)
	}

	locked := c.Pose()
	if c.Update(PhaseZoomedOut, Vec3{Z: -70}, 1.0/60) {
		t.Fatalf("locked camera must not be written")
	}
	if c.Pose() != locked {
		t.Fatalf("locked pose drifted")
	}

	c.Update(PhaseIdle, rig, 1.0/60)
	if c.Locked() {
		t.Fatalf("leaving ZoomedOut must release the lock")
	}
}

func TestCamera_ZeroDeltaNoMotion(t *testing.T) {
	c := newCameraController(DefaultCameraConfig(), false)
	before := c.Pose()
	c.Update(PhaseRiding, Vec3{Z: -90}, 0)
	if c.Pose() != before {
		t.Fatalf("dt=0 must not move the camera")
	}
}

func TestCamera_StartingFollowsLikeRiding(t *testing.T) {
	cfg := DefaultCameraConfig()
	starting := newCameraController(cfg, false)
	riding := newCameraController(cfg, false)
	rig := Vec3{Z: -1}

	if !starting.Update(PhaseStarting, rig, 0.1) {
		t.Fatalf("expected Starting to write the pose")
	}
	riding.Update(PhaseRiding, rig, 0.1)
	if starting.Pose() != riding.Pose() {
		t.Fatalf("Starting pose %+v differs from Riding %+v", starting.Pose(), riding.Pose())
	}
}
