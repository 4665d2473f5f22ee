//go:build !linux

package main

import (
	"context"
	"os"
)

// readInputEventsEpoll falls back to one blocking reader per device where epoll
// is unavailable. Readers stop when runInput closes the files.
func readInputEventsEpoll(ctx context.Context, files []*os.File, events chan<- deviceEvent, readErr chan<- error) {
	for _, f := range files {
		go readInputEvents(f, events, readErr)
	}
	<-ctx.Done()
}
