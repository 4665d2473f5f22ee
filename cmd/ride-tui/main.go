package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"rideengine/ride"
)

// ride-tui runs an engine in-process and draws it in the terminal. It is a
// debugging aid for tuning ride and camera constants without a browser.

func main() {
	var (
		tickHz        = flag.Int("tick-hz", 60, "Engine tick rate in Hz")
		reducedMotion = flag.Bool("reduced-motion", false, "Snap the camera instead of easing it")
		muted         = flag.Bool("muted", true, "Initial mute flag")
		logFile       = flag.String("log-file", "", "Write debug logs to this file (the terminal is taken by the UI)")
	)
	flag.Parse()

	if *tickHz < 1 || *tickHz > 1000 {
		fmt.Fprintln(os.Stderr, "error: -tick-hz must be between 1 and 1000")
		os.Exit(1)
	}

	var logOut io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := ride.DefaultConfig()
	cfg.PrefersReducedMotion = *reducedMotion
	cfg.Muted = *muted

	engine, err := ride.New(cfg, ride.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	engine.Subscribe(func(b ride.Broadcast) {
		logger.Debug("broadcast", "event", fmt.Sprintf("%T", b), "value", b)
	})

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	defer screen.Fini()

	run(newViewer(screen, engine), *tickHz)
}

// run owns the engine: terminal events and ticks are handled on this goroutine.
func run(v *viewer, tickHz int) {
	ticker := time.NewTicker(time.Second / time.Duration(tickHz))
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				// Screen finalized.
				close(eventChan)
				return
			}
			eventChan <- ev
		}
	}()

	maxDt := 2.0 / float64(tickHz)
	last := time.Now()

	for {
		select {
		case ev, ok := <-eventChan:
			if !ok || !v.handleEvent(ev) {
				return
			}

		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if dt > maxDt {
				dt = maxDt
			}
			v.engine.OnTick(dt)
			v.draw()
		}
	}
}
