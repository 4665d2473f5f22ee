package main

import (
	"encoding/json"
	"fmt"

	"rideengine/ride"
)

// ============================================================================
// Event Types
// ============================================================================
// Events represent ride input from various sources (evdev wheel, IPC, HTTP).
// The daemon loop is the only consumer; it applies each event to the engine.
// ============================================================================

// Event is a marker interface for everything the daemon loop consumes.
type Event interface {
	eventMarker()
}

// Wheel is a wheel delta in pixels. Positive moves the ride forward.
type Wheel struct {
	DeltaY float64 `json:"delta_y"`
}

// TouchStart anchors a vertical touch gesture.
type TouchStart struct {
	ClientY float64 `json:"client_y"`
}

// TouchMove continues a touch gesture; dragging up advances.
type TouchMove struct {
	ClientY float64 `json:"client_y"`
}

// Retarget biases the ride toward a waypoint index.
type Retarget struct {
	Index int `json:"index"`
}

// SelectPointOfInterest selects a named planet.
type SelectPointOfInterest struct {
	ID string `json:"id"`
}

// SetMuted sets the mute flag.
type SetMuted struct {
	Muted bool `json:"muted"`
}

// ReturnToIdle hands the camera back after the ride has zoomed out.
type ReturnToIdle struct{}

// RequestStateSnapshot asks the loop for a snapshot. Internal only: it is never
// accepted over IPC because the reply channel cannot cross the wire.
type RequestStateSnapshot struct {
	Reply chan<- ride.Snapshot
}

func (Wheel) eventMarker()                 {}
func (TouchStart) eventMarker()            {}
func (TouchMove) eventMarker()             {}
func (Retarget) eventMarker()              {}
func (SelectPointOfInterest) eventMarker() {}
func (SetMuted) eventMarker()              {}
func (ReturnToIdle) eventMarker()          {}
func (RequestStateSnapshot) eventMarker()  {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps events with a type discriminator for JSON.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// eventTypeName returns the wire name for e.
func eventTypeName(e Event) (string, bool) {
	switch e.(type) {
	case Wheel:
		return "wheel", true
	case TouchStart:
		return "touch_start", true
	case TouchMove:
		return "touch_move", true
	case Retarget:
		return "retarget", true
	case SelectPointOfInterest:
		return "select_point_of_interest", true
	case SetMuted:
		return "set_muted", true
	case ReturnToIdle:
		return "return_to_idle", true
	default:
		return "", false
	}
}

// UnmarshalEvent decodes a JSON envelope into a concrete Event.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "wheel":
		return decodeData[Wheel](env)
	case "touch_start":
		return decodeData[TouchStart](env)
	case "touch_move":
		return decodeData[TouchMove](env)
	case "retarget":
		return decodeData[Retarget](env)
	case "select_point_of_interest":
		ev, err := decodeData[SelectPointOfInterest](env)
		if err == nil && ev.(SelectPointOfInterest).ID == "" {
			return nil, fmt.Errorf("select_point_of_interest: id must not be empty")
		}
		return ev, err
	case "set_muted":
		return decodeData[SetMuted](env)
	case "return_to_idle":
		return ReturnToIdle{}, nil
	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// decodeData unmarshals env.Data into T. A missing payload is an error so a
// bare {"type":"wheel"} cannot silently become a zero delta.
func decodeData[T Event](env EventEnvelope) (Event, error) {
	var v T
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return v, nil
}

// MarshalEvent encodes an Event into a JSON envelope.
func MarshalEvent(e Event) ([]byte, error) {
	name, ok := eventTypeName(e)
	if !ok {
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}
	env := EventEnvelope{Type: name}
	if _, empty := e.(ReturnToIdle); !empty {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", name, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}
