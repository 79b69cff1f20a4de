package main

import (
	"os"
	"os/signal"
	"syscall"

	"hyperion/internal/bootstrap"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()

	if err := container.Start(); err != nil {
		container.Log.Fatalf("Failed to start: %v", err)
	}

	waitForShutdown(container)
}

// waitForShutdown blocks until a termination signal and shuts down gracefully
func waitForShutdown(c *bootstrap.Container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		c.Log.Infof("Received signal %s, shutting down...", sig)
	case <-c.Context.Done():
		c.Log.Info("Context cancelled, shutting down...")
	}

	c.Shutdown()
}
