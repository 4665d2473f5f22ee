package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_REL = 0x02

	REL_HWHEEL        = 0x06
	REL_WHEEL         = 0x08
	REL_WHEEL_HI_RES  = 0x0b
	REL_HWHEEL_HI_RES = 0x0c
)

// hiResUnitsPerDetent is the REL_WHEEL_HI_RES value of one physical detent.
const hiResUnitsPerDetent = 120

// Daemon defaults
const (
	defaultTickHz              = 60
	defaultWheelUnitsPerDetent = 100.0 // browser-like pixels per wheel notch
	defaultSocketPath          = "/tmp/rided.sock"
	defaultHTTPAddr            = "127.0.0.1:3002"

	// eventQueueSize bounds the inbound event channel shared by IPC, HTTP and input.
	eventQueueSize = 128
	// broadcastQueueSize bounds engine broadcasts waiting for the WS broadcaster.
	broadcastQueueSize = 256
)
