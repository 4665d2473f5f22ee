package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ============================================================================
// ride-ctl - Command-line IPC Client
// ============================================================================
// Sends ride events to the rided daemon over its Unix domain socket.
//
// Usage:
//   ride-ctl wheel 120
//   ride-ctl touch 400 250
//   ride-ctl retarget 2
//   ride-ctl select skills
//   ride-ctl mute on
//   ride-ctl idle
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/rided.sock)
// ============================================================================

// Event types (duplicated from the daemon for a standalone binary)
type Event interface{}

type Wheel struct {
	DeltaY float64 `json:"delta_y"`
}

type TouchStart struct {
	ClientY float64 `json:"client_y"`
}

type TouchMove struct {
	ClientY float64 `json:"client_y"`
}

type Retarget struct {
	Index int `json:"index"`
}

type SelectPointOfInterest struct {
	ID string `json:"id"`
}

type SetMuted struct {
	Muted bool `json:"muted"`
}

type ReturnToIdle struct{}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/rided.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		os.Exit(0)
	}

	events, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if err := sendEvents(socketPath, events); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

// parseCommand turns a command line into the events to send, in order.
func parseCommand(args []string) ([]Event, error) {
	switch args[0] {
	case "wheel":
		if len(args) < 2 {
			return nil, fmt.Errorf("wheel requires a delta")
		}
		dy, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid delta: %w", err)
		}
		return []Event{Wheel{DeltaY: dy}}, nil

	case "touch":
		if len(args) < 3 {
			return nil, fmt.Errorf("touch requires a start and an end y")
		}
		y0, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid start y: %w", err)
		}
		y1, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid end y: %w", err)
		}
		return []Event{TouchStart{ClientY: y0}, TouchMove{ClientY: y1}}, nil

	case "retarget":
		if len(args) < 2 {
			return nil, fmt.Errorf("retarget requires a waypoint index")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid index: %w", err)
		}
		return []Event{Retarget{Index: idx}}, nil

	case "select", "planet":
		if len(args) < 2 {
			return nil, fmt.Errorf("select requires a point of interest id")
		}
		return []Event{SelectPointOfInterest{ID: args[1]}}, nil

	case "mute":
		muted := true
		if len(args) >= 2 {
			switch args[1] {
			case "on", "true", "1":
			case "off", "false", "0":
				muted = false
			default:
				return nil, fmt.Errorf("mute takes on or off, got %q", args[1])
			}
		}
		return []Event{SetMuted{Muted: muted}}, nil

	case "unmute":
		return []Event{SetMuted{Muted: false}}, nil

	case "idle", "return-to-idle":
		return []Event{ReturnToIdle{}}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

// sendEvents writes each event on one connection and checks every response.
func sendEvents(socketPath string, events []Event) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for _, ev := range events {
		data, err := marshalEvent(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		// Line-delimited JSON
		if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
			return fmt.Errorf("send event: %w", err)
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		var response IPCResponse
		if err := json.Unmarshal(line, &response); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if response.Status == "error" {
			return fmt.Errorf("daemon error: %s", response.Error)
		}
	}

	return nil
}

func marshalEvent(ev Event) ([]byte, error) {
	var env EventEnvelope

	switch ev.(type) {
	case Wheel:
		env.Type = "wheel"
	case TouchStart:
		env.Type = "touch_start"
	case TouchMove:
		env.Type = "touch_move"
	case Retarget:
		env.Type = "retarget"
	case SelectPointOfInterest:
		env.Type = "select_point_of_interest"
	case SetMuted:
		env.Type = "set_muted"
	case ReturnToIdle:
		env.Type = "return_to_idle"
		return json.Marshal(env)
	default:
		return nil, fmt.Errorf("unknown event type: %T", ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", ev, err)
	}
	env.Data = data

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `ride-ctl - Send ride events to the rided daemon via IPC

Usage:
  ride-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/rided.sock)

Commands:
  wheel <deltaY>            Wheel delta in pixels (positive scrolls forward)
  touch <y0> <y1>           Touch drag from y0 to y1 (upward drag moves forward)
  retarget <index>          Request a retarget to a waypoint index
  select, planet <id>       Select a point of interest (e.g. skills)
  mute [on|off]             Set the mute flag (default on)
  unmute                    Clear the mute flag
  idle, return-to-idle      Return to idle after the ride has finished
  help, -h, --help          Show this help message

Examples:
  ride-ctl wheel 120
  ride-ctl select contact
  ride-ctl -socket /run/rided.sock mute off
`)
}
