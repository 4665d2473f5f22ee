package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"rideengine/ride"
)

const version = "0.3.0"

func printVersion() {
	fmt.Printf("rided v%s\n", version)
	fmt.Println("Ride progression engine daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  rided [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Runs the ride engine on a fixed tick loop. Wheel input comes from Linux")
	fmt.Println("  input devices, the IPC socket (ride-ctl) or POST /events; state changes")
	fmt.Println("  stream to websocket clients on /ws/state.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (defaults are used when empty)")
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Linux input event device for wheel input (overrides input.devices)")
	fmt.Println()
	fmt.Println("  -tick-hz int")
	fmt.Printf("        Engine tick rate in Hz (default %d)\n", defaultTickHz)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultSocketPath)
	fmt.Println()
	fmt.Println("  -http-addr string")
	fmt.Printf("        HTTP listen address; empty disables (default %q)\n", defaultHTTPAddr)
	fmt.Println()
	fmt.Println("  -reduced-motion")
	fmt.Println("        Snap the camera instead of easing it")
	fmt.Println()
	fmt.Println("  -muted")
	fmt.Println("        Initial mute flag (default true)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  rided -config ~/.config/rided.yaml")
	fmt.Println("  rided -input-device /dev/input/event4 -log-level debug")
	fmt.Println()
}

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		inputDevice   = flag.String("input-device", "", "Linux input event device for wheel input")
		tickHz        = flag.Int("tick-hz", defaultTickHz, "Engine tick rate in Hz")
		ipcSocketPath = flag.String("ipc-socket", defaultSocketPath, "Unix domain socket path for IPC")
		httpAddr      = flag.String("http-addr", defaultHTTPAddr, "HTTP listen address (empty disables)")
		reducedMotion = flag.Bool("reduced-motion", false, "Snap the camera instead of easing it")
		muted         = flag.Bool("muted", true, "Initial mute flag")
		logLevelStr   = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion   = flag.Bool("version", false, "Print version and exit")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input-device":
			ov.InputDevice = inputDevice
		case "tick-hz":
			ov.TickHz = tickHz
		case "ipc-socket":
			ov.IPCSocketPath = ipcSocketPath
		case "http-addr":
			ov.HTTPAddr = httpAddr
		case "reduced-motion":
			ov.ReducedMotion = reducedMotion
		case "muted":
			ov.Muted = muted
		case "log-level":
			ov.LogLevel = logLevelStr
		}
	})
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(logLevel)

	engine, err := ride.New(cfg.ToEngineConfig(), ride.WithLogger(logger.With("component", "ride")))
	if err != nil {
		logger.Error("failed to create ride engine", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Central event bus into the loop.
	events := make(chan Event, eventQueueSize)
	broadcasts := make(chan ride.Broadcast, broadcastQueueSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runDaemon(gctx, events, engine, cfg.Loop.TickHz, broadcasts, logger)
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
	})

	if cfg.HTTP.Addr != "" {
		ws := NewServer(logger, events, ServerConfig{
			Waypoints:        engine.Waypoints(),
			PointsOfInterest: engine.PointsOfInterest(),
		})
		g.Go(func() error {
			ws.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, ws.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Addr, newMux(ws, events, logger), logger)
		})
	} else {
		// Nobody consumes broadcasts; drain them so the loop never logs drops.
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-broadcasts:
				}
			}
		})
	}

	g.Go(func() error {
		return runInput(gctx, cfg.Input.Devices, cfg.Input.WheelUnitsPerDetent, events, logger)
	})

	logger.Debug("configuration",
		"tick_hz", cfg.Loop.TickHz,
		"waypoints", cfg.Ride.Waypoints,
		"reduced_motion", cfg.Ride.PrefersReducedMotion,
		"muted", cfg.Ride.Muted,
		"input_devices", cfg.Input.Devices)
	logger.Info("listening", "ipc", cfg.IPC.SocketPath, "http", cfg.HTTP.Addr, "tick_hz", cfg.Loop.TickHz, "version", version)

	if err := g.Wait(); err != nil {
		logger.Error("shutting down", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}
