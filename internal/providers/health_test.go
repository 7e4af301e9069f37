package providers

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/anirudhshenoy/nanobot/internal/routing"
)

var healthTarget = routing.Target{Model: "claude-opus-4", Provider: "anthropic"}

func testHealthConfig(t *testing.T) HealthConfig {
	t.Helper()
	return HealthConfig{
		FailureThreshold: 3,
		CooldownPeriod:   time.Minute,
		PersistPath:      filepath.Join(t.TempDir(), "health.json"),
	}
}

func TestHealthDegradesAfterThreshold(t *testing.T) {
	hr := NewHealthRegistry(testHealthConfig(t), slog.Default())

	hr.RecordFailure(healthTarget, ErrKindServer)
	hr.RecordFailure(healthTarget, ErrKindServer)

	h, ok := hr.TargetStatus(healthTarget)
	if !ok {
		t.Fatal("target not tracked")
	}
	if h.State == StateDegraded {
		t.Error("degraded before threshold")
	}

	hr.RecordFailure(healthTarget, ErrKindTimeout)
	h, _ = hr.TargetStatus(healthTarget)
	if h.State != StateDegraded {
		t.Errorf("State = %s, want degraded after 3 failures", h.State)
	}
	if h.LastErrorKind != ErrKindTimeout {
		t.Errorf("LastErrorKind = %s, want timeout", h.LastErrorKind)
	}
	if h.ErrorKinds[ErrKindServer] != 2 || h.ErrorKinds[ErrKindTimeout] != 1 {
		t.Errorf("ErrorKinds = %v", h.ErrorKinds)
	}
}

func TestHealthRecoversOnSuccess(t *testing.T) {
	hr := NewHealthRegistry(testHealthConfig(t), slog.Default())

	for i := 0; i < 3; i++ {
		hr.RecordFailure(healthTarget, ErrKindServer)
	}
	hr.RecordSuccess(healthTarget)

	h, _ := hr.TargetStatus(healthTarget)
	if h.State != StateHealthy {
		t.Errorf("State = %s, want healthy after success", h.State)
	}
	if h.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", h.ConsecutiveFailures)
	}
	if h.TotalRequests != 4 || h.TotalFailures != 3 {
		t.Errorf("totals = %d/%d, want 4/3", h.TotalRequests, h.TotalFailures)
	}
	if h.SuccessRate != 0.25 {
		t.Errorf("SuccessRate = %f, want 0.25", h.SuccessRate)
	}
}

func TestHealthDegradedTargets(t *testing.T) {
	hr := NewHealthRegistry(testHealthConfig(t), slog.Default())
	other := routing.Target{Model: "gpt-4o", Provider: "openai"}

	for i := 0; i < 3; i++ {
		hr.RecordFailure(healthTarget, ErrKindServer)
	}
	hr.RecordSuccess(other)

	degraded := hr.DegradedTargets()
	if len(degraded) != 1 || degraded[0] != "anthropic/claude-opus-4" {
		t.Errorf("DegradedTargets = %v", degraded)
	}
}

func TestHealthPersistRoundTrip(t *testing.T) {
	cfg := testHealthConfig(t)

	hr := NewHealthRegistry(cfg, slog.Default())
	hr.RecordFailure(healthTarget, ErrKindRateLimited)
	hr.RecordSuccess(healthTarget)
	if err := hr.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reloaded := NewHealthRegistry(cfg, slog.Default())
	h, ok := reloaded.TargetStatus(healthTarget)
	if !ok {
		t.Fatal("target not loaded from disk")
	}
	if h.TotalRequests != 2 || h.TotalFailures != 1 {
		t.Errorf("reloaded totals = %d/%d, want 2/1", h.TotalRequests, h.TotalFailures)
	}
	if h.ErrorKinds[ErrKindRateLimited] != 1 {
		t.Errorf("reloaded ErrorKinds = %v", h.ErrorKinds)
	}
}

func TestHealthPersistSkipsWhenClean(t *testing.T) {
	hr := NewHealthRegistry(testHealthConfig(t), slog.Default())

	// Nothing recorded: no file should be written.
	if err := hr.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, ok := hr.TargetStatus(healthTarget); ok {
		t.Error("unexpected target present")
	}
}

func TestHealthStatusReturnsCopies(t *testing.T) {
	hr := NewHealthRegistry(testHealthConfig(t), slog.Default())
	hr.RecordFailure(healthTarget, ErrKindServer)

	status := hr.Status()
	status["anthropic/claude-opus-4"].TotalFailures = 99

	h, _ := hr.TargetStatus(healthTarget)
	if h.TotalFailures != 1 {
		t.Error("Status exposed internal state")
	}
}
