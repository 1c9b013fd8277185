package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals end the process gracefully.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// WithSignal returns a context canceled by SIGINT or SIGTERM. Calling stop
// restores default signal handling, so a second signal during a slow
// shutdown kills the process.
func WithSignal(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
