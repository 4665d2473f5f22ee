package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// frame is the rided websocket envelope.
type frame struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func main() {
	var (
		wsURL    = flag.String("ws", "ws://127.0.0.1:3002/ws/state", "rided state websocket URL")
		raw      = flag.Bool("raw", false, "Print frames as received instead of summaries")
		progress = flag.Bool("progress", true, "Print progress_changed frames")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	// The daemon pings every 20s; answer with our own traffic to keep the deadline fresh.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(message))
				continue
			}
			if *raw {
				fmt.Printf("%s\n", message)
				continue
			}
			handleFrame(message, *progress)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleFrame prints a one-line summary per frame.
func handleFrame(message []byte, showProgress bool) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch f.Type {
	case "state_init":
		var d struct {
			State struct {
				Phase    string  `json:"phase"`
				Progress float64 `json:"progress"`
				Muted    bool    `json:"muted"`
			} `json:"state"`
			Waypoints        []float64      `json:"waypoints"`
			PointsOfInterest map[string]int `json:"points_of_interest"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			break
		}
		fmt.Printf("[INIT] phase=%s progress=%.3f muted=%t waypoints=%v poi=%v\n",
			d.State.Phase, d.State.Progress, d.State.Muted, d.Waypoints, d.PointsOfInterest)
		return

	case "phase_changed":
		var d struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			break
		}
		fmt.Printf("[PHASE] %s -> %s\n", d.From, d.To)
		return

	case "progress_changed":
		if !showProgress {
			return
		}
		var d struct {
			Progress float64 `json:"progress"`
			Position float64 `json:"position"`
			Speed    float64 `json:"speed"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			break
		}
		fmt.Printf("[PROGRESS] %.3f z=%.2f speed=%.2f\n", d.Progress, d.Position, d.Speed)
		return

	case "target_changed":
		var d struct {
			Index *int `json:"index"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			break
		}
		if d.Index == nil {
			fmt.Printf("[TARGET] none\n")
		} else {
			fmt.Printf("[TARGET] %d\n", *d.Index)
		}
		return

	case "boost_changed":
		var d struct {
			SpeedBoost float64 `json:"speed_boost"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			break
		}
		fmt.Printf("[BOOST] %.2f\n", d.SpeedBoost)
		return

	case "mute_changed":
		var d struct {
			Muted bool `json:"muted"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			break
		}
		if d.Muted {
			fmt.Printf("[MUTE] MUTED\n")
		} else {
			fmt.Printf("[MUTE] UNMUTED\n")
		}
		return

	case "planet_selected":
		var d struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			break
		}
		fmt.Printf("[PLANET] %s\n", d.ID)
		return
	}

	fmt.Printf("[%s] %s\n", f.Type, string(f.Data))
}
