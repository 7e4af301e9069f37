//go:build !windows

package main

import (
	"os"
	"syscall"
)

// getShutdownSignals returns the signals to listen for on Unix systems
func getShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
}

// handlePlatformSignal handles platform-specific signals, returns true if should continue loop
func handlePlatformSignal(sig os.Signal, app *App) bool {
	if sig == syscall.SIGHUP {
		// Config is immutable per process; report what diverged on disk.
		report, err := app.Config.Diff(app.ConfigPath)
		if err != nil {
			app.Logger.Warn("reload signal: config could not be re-read", "error", err)
			return true
		}
		report.LogReport(app.Logger)
		return true
	}
	return false
}
