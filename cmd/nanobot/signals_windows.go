//go:build windows

package main

import (
	"os"
	"syscall"
)

// getShutdownSignals returns the signals to listen for on Windows
func getShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// handlePlatformSignal handles platform-specific signals, returns true if should continue loop
func handlePlatformSignal(_ os.Signal, _ *App) bool {
	return false
}
