package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"rideengine/ride"
)

// ============================================================================
// HTTP Server
// ============================================================================
// Serves the state websocket (/ws/state) and a one-shot JSON snapshot (/state).
// Both read engine state through the daemon loop.
// ============================================================================

// snapshotTimeout bounds a snapshot round-trip through the loop.
const snapshotTimeout = time.Second

var errEventQueueFull = errors.New("event queue full")

// requestSnapshot asks the daemon loop for a snapshot and waits for the reply.
func requestSnapshot(ctx context.Context, events chan<- Event) (ride.Snapshot, error) {
	if events == nil {
		return ride.Snapshot{}, errors.New("no event loop")
	}

	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, snapshotTimeout)
		defer cancel()
	}

	reply := make(chan ride.Snapshot, 1)
	select {
	case <-ctx.Done():
		return ride.Snapshot{}, ctx.Err()
	case events <- RequestStateSnapshot{Reply: reply}:
	}

	select {
	case <-ctx.Done():
		return ride.Snapshot{}, ctx.Err()
	case snap := <-reply:
		return snap, nil
	}
}

// newMux builds the daemon's HTTP routes.
func newMux(ws *Server, events chan<- Event, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	if ws != nil {
		ws.Register(mux, "/ws/state")
	}
	mux.HandleFunc("/state", stateHandler(events, logger))
	mux.HandleFunc("/events", eventsHandler(events, logger))
	return mux
}

// stateHandler serves GET /state with the current snapshot as JSON.
func stateHandler(events chan<- Event, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snap, err := requestSnapshot(r.Context(), events)
		if err != nil {
			logger.Warn("snapshot request failed", "error", err)
			http.Error(w, "snapshot unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			logger.Debug("snapshot write failed", "error", err)
		}
	}
}

// eventsHandler accepts POST /events with a single event envelope, the same
// format the IPC socket takes, and answers with an IPCResponse.
func eventsHandler(events chan<- Event, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		var raw json.RawMessage
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&raw); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(IPCResponse{Status: "error", Error: fmt.Sprintf("read body: %v", err)})
			return
		}

		resp := submitEvent(raw, events)
		if resp.Status != "ok" {
			logger.Debug("http event rejected", "error", resp.Error)
			if resp.Error == errEventQueueFull.Error() {
				w.WriteHeader(http.StatusServiceUnavailable)
			} else {
				w.WriteHeader(http.StatusBadRequest)
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// runHTTPServer serves handler on addr and shuts it down gracefully when ctx
// is canceled.
func runHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	logger.Info("http server listening", "addr", addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		// ListenAndServe returns http.ErrServerClosed on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}
