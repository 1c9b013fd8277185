package main

import (
	"context"
	"fmt"
	"log"

	"activity-signup-service/cmd/api/app"
	"activity-signup-service/cmd/api/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}
}

func run() error {
	ctx, stop := server.WithSignal(context.Background())
	defer stop()
	go func() {
		// A second signal while shutting down exits immediately
		<-ctx.Done()
		stop()
	}()

	a, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	return a.Run(ctx)
}
