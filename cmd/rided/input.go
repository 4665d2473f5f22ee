package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// deviceEvent tags an input event with the device it came from.
type deviceEvent struct {
	Device string
	inputEvent
}

// readInputEvents reads input events from one device until a read fails.
// It blocks on read, so run it in a dedicated goroutine.
func readInputEvents(f *os.File, events chan<- deviceEvent, readErr chan<- error) {
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			readErr <- fmt.Errorf("read from %s: %w", f.Name(), err)
			return
		}

		reader.Reset(buf)
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			// Skip malformed events
			continue
		}

		events <- deviceEvent{Device: f.Name(), inputEvent: ev}
	}
}

// wheelTranslator turns evdev relative wheel events into Wheel events.
//
// Mice with high-resolution wheels report both REL_WHEEL_HI_RES and the legacy
// REL_WHEEL for the same motion. Once a device has emitted a hi-res event its
// legacy events are ignored so a notch is not counted twice.
type wheelTranslator struct {
	unitsPerDetent float64
	hiRes          map[string]bool
}

func newWheelTranslator(unitsPerDetent float64) *wheelTranslator {
	if unitsPerDetent <= 0 {
		unitsPerDetent = defaultWheelUnitsPerDetent
	}
	return &wheelTranslator{
		unitsPerDetent: unitsPerDetent,
		hiRes:          make(map[string]bool),
	}
}

// translate returns the Wheel event for ev, if any. Wheel-up (positive
// REL_WHEEL) scrolls back, matching browser deltaY sign.
func (t *wheelTranslator) translate(ev deviceEvent) (Wheel, bool) {
	if ev.Type != EV_REL || ev.Value == 0 {
		return Wheel{}, false
	}

	var detents float64
	switch ev.Code {
	case REL_WHEEL_HI_RES:
		t.hiRes[ev.Device] = true
		detents = float64(ev.Value) / hiResUnitsPerDetent
	case REL_WHEEL:
		if t.hiRes[ev.Device] {
			return Wheel{}, false
		}
		detents = float64(ev.Value)
	default:
		return Wheel{}, false
	}

	return Wheel{DeltaY: -detents * t.unitsPerDetent}, true
}

// runInput reads the configured devices and feeds Wheel events to the loop until
// ctx is canceled or a device fails.
func runInput(ctx context.Context, devices []string, unitsPerDetent float64, out chan<- Event, logger *slog.Logger) error {
	if len(devices) == 0 {
		logger.Info("no input devices configured, wheel input disabled")
		return nil
	}

	files := make([]*os.File, 0, len(devices))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, dev := range devices {
		f, err := os.Open(dev)
		if err != nil {
			return fmt.Errorf("open input device %s (run as root or add user to 'input' group): %w", dev, err)
		}
		files = append(files, f)
	}

	raw := make(chan deviceEvent, 64)
	readErr := make(chan error, 1)
	go readInputEventsEpoll(ctx, files, raw, readErr)

	logger.Info("input devices open", "devices", devices)

	tr := newWheelTranslator(unitsPerDetent)
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input reader stopped: %w", err)

		case ev := <-raw:
			w, ok := tr.translate(ev)
			if !ok {
				continue
			}
			select {
			case out <- w:
			default:
				logger.Debug("event queue full, dropping wheel input", "delta_y", w.DeltaY)
			}
		}
	}
}
