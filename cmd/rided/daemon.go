package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rideengine/ride"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The loop is the only goroutine that touches the ride engine:
//   - Events from IPC, HTTP and input devices are applied in arrival order
//   - A ticker drives OnTick at loop.tick_hz with dt clamped to two ticks
//   - Engine broadcasts are forwarded to the WS broadcaster without blocking
//
// ============================================================================

// runDaemon owns engine until ctx is canceled or events is closed.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	engine *ride.Engine,
	tickHz int,
	out chan<- ride.Broadcast,
	logger *slog.Logger,
) error {
	if tickHz <= 0 {
		tickHz = defaultTickHz
	}
	maxDt := 2.0 / float64(tickHz)

	if out != nil {
		unsubscribe := engine.Subscribe(func(b ride.Broadcast) {
			select {
			case out <- b:
			default:
				logger.Warn("broadcast queue full, dropping state change", "type", broadcastName(b))
			}
		})
		defer unsubscribe()
	}

	ticker := time.NewTicker(time.Second / time.Duration(tickHz))
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return nil

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return nil
			}
			applyEvent(engine, ev, logger)

		case now := <-ticker.C:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			if dt > maxDt {
				dt = maxDt
			}
			engine.OnTick(dt)
		}
	}
}

// applyEvent routes a single event to the engine.
func applyEvent(engine *ride.Engine, ev Event, logger *slog.Logger) {
	switch ev := ev.(type) {
	case Wheel:
		engine.OnWheel(ev.DeltaY)

	case TouchStart:
		engine.OnTouchStart(ev.ClientY)

	case TouchMove:
		engine.OnTouchMove(ev.ClientY)

	case Retarget:
		if !engine.RequestRetarget(ev.Index) {
			logger.Debug("retarget rejected", "index", ev.Index)
		}

	case SelectPointOfInterest:
		engine.SelectPointOfInterest(ev.ID)

	case SetMuted:
		engine.SetMuted(ev.Muted)

	case ReturnToIdle:
		if !engine.ReturnToIdle() {
			logger.Debug("return to idle ignored")
		}

	case RequestStateSnapshot:
		if ev.Reply == nil {
			return
		}
		select {
		case ev.Reply <- engine.Snapshot():
		default:
			logger.Warn("snapshot reply channel full, dropping")
		}

	default:
		logger.Warn("unhandled event", "type", fmt.Sprintf("%T", ev))
	}
}
