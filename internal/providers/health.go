package providers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/anirudhshenoy/nanobot/internal/routing"
)

// TargetState represents the health state of a route target.
type TargetState string

const (
	StateHealthy  TargetState = "healthy"
	StateDegraded TargetState = "degraded"
	StateUnknown  TargetState = "unknown"
)

// TargetHealth tracks the outcome history of a single route target. It is
// observational only: chain order is fixed by the routing decision and never
// altered by health state.
type TargetHealth struct {
	State               TargetState       `json:"state"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	LastFailure         *time.Time        `json:"last_failure,omitempty"`
	LastSuccess         *time.Time        `json:"last_success,omitempty"`
	DegradedAt          *time.Time        `json:"degraded_at,omitempty"`
	TotalRequests       int64             `json:"total_requests"`
	TotalFailures       int64             `json:"total_failures"`
	SuccessRate         float64           `json:"success_rate"`
	ErrorKinds          map[ErrorKind]int `json:"error_kinds"`
	LastErrorKind       ErrorKind         `json:"last_error_kind,omitempty"`
}

// HealthConfig configures the health registry behavior.
type HealthConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // Failures before degraded (default: 3)
	CooldownPeriod   time.Duration `json:"cooldown_period"`   // Time before a degraded target counts as healthy again
	PersistPath      string        `json:"persist_path"`      // Path to persist state
}

// DefaultHealthConfig returns sensible defaults rooted in dataDir.
func DefaultHealthConfig(dataDir string) HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		CooldownPeriod:   5 * time.Minute,
		PersistPath:      filepath.Join(dataDir, "target_health.json"),
	}
}

// HealthRegistry records per-target outcomes across dispatch attempts.
type HealthRegistry struct {
	mu      sync.RWMutex
	targets map[string]*TargetHealth
	cfg     HealthConfig
	logger  *slog.Logger
	dirty   bool
}

type healthSnapshot struct {
	Targets     map[string]*TargetHealth `json:"targets"`
	LastUpdated time.Time                `json:"last_updated"`
	Version     string                   `json:"version"`
}

// NewHealthRegistry creates a health registry, loading any persisted state.
func NewHealthRegistry(cfg HealthConfig, logger *slog.Logger) *HealthRegistry {
	hr := &HealthRegistry{
		targets: make(map[string]*TargetHealth),
		cfg:     cfg,
		logger:  logger.With("component", "health-registry"),
	}

	if err := hr.load(); err != nil {
		// Not fatal - start fresh
		hr.logger.Debug("no existing health state, starting fresh", "error", err)
	}
	return hr
}

func targetKey(t routing.Target) string {
	return t.Provider + "/" + t.Model
}

func (hr *HealthRegistry) getOrCreate(key string) *TargetHealth {
	if h, ok := hr.targets[key]; ok {
		return h
	}
	h := &TargetHealth{
		State:      StateUnknown,
		ErrorKinds: make(map[ErrorKind]int),
	}
	hr.targets[key] = h
	return h
}

// RecordSuccess records a successful attempt against a target.
func (hr *HealthRegistry) RecordSuccess(target routing.Target) {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	key := targetKey(target)
	h := hr.getOrCreate(key)
	now := time.Now()

	h.LastSuccess = &now
	h.ConsecutiveFailures = 0
	h.TotalRequests++

	switch h.State {
	case StateDegraded:
		h.State = StateHealthy
		h.DegradedAt = nil
		hr.logger.Info("target recovered", "target", key)
	case StateUnknown:
		h.State = StateHealthy
	}

	if h.TotalRequests > 0 {
		h.SuccessRate = float64(h.TotalRequests-h.TotalFailures) / float64(h.TotalRequests)
	}
	hr.dirty = true
}

// RecordFailure records a failed attempt against a target.
func (hr *HealthRegistry) RecordFailure(target routing.Target, kind ErrorKind) {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	key := targetKey(target)
	h := hr.getOrCreate(key)
	now := time.Now()

	h.LastFailure = &now
	h.LastErrorKind = kind
	h.ConsecutiveFailures++
	h.TotalRequests++
	h.TotalFailures++

	if h.ErrorKinds == nil {
		h.ErrorKinds = make(map[ErrorKind]int)
	}
	h.ErrorKinds[kind]++

	if h.TotalRequests > 0 {
		h.SuccessRate = float64(h.TotalRequests-h.TotalFailures) / float64(h.TotalRequests)
	}

	if h.ConsecutiveFailures >= hr.cfg.FailureThreshold && h.State != StateDegraded {
		h.State = StateDegraded
		h.DegradedAt = &now
		hr.logger.Warn("target degraded",
			"target", key,
			"consecutive_failures", h.ConsecutiveFailures,
			"error_kind", string(kind),
		)
	}
	hr.dirty = true
}

// Status returns a copy of health state for all targets.
func (hr *HealthRegistry) Status() map[string]*TargetHealth {
	hr.mu.RLock()
	defer hr.mu.RUnlock()

	result := make(map[string]*TargetHealth, len(hr.targets))
	for k, v := range hr.targets {
		cp := *v
		result[k] = &cp
	}
	return result
}

// TargetStatus returns health state for one target.
func (hr *HealthRegistry) TargetStatus(target routing.Target) (*TargetHealth, bool) {
	hr.mu.RLock()
	defer hr.mu.RUnlock()

	h, ok := hr.targets[targetKey(target)]
	if !ok {
		return nil, false
	}
	cp := *h
	return &cp, true
}

// DegradedTargets returns the keys of currently degraded targets, ignoring
// those whose cooldown has expired.
func (hr *HealthRegistry) DegradedTargets() []string {
	hr.mu.RLock()
	defer hr.mu.RUnlock()

	var degraded []string
	for key, h := range hr.targets {
		if h.State != StateDegraded {
			continue
		}
		if h.DegradedAt != nil && time.Since(*h.DegradedAt) > hr.cfg.CooldownPeriod {
			continue
		}
		degraded = append(degraded, key)
	}
	return degraded
}

// Persist saves state to disk if it changed since the last save.
func (hr *HealthRegistry) Persist() error {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	if !hr.dirty {
		return nil
	}

	snapshot := healthSnapshot{
		Targets:     hr.targets,
		LastUpdated: time.Now(),
		Version:     "1.0",
	}

	dir := filepath.Dir(hr.cfg.PersistPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create health dir: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health state: %w", err)
	}

	if err := os.WriteFile(hr.cfg.PersistPath, data, 0640); err != nil {
		return fmt.Errorf("write health state: %w", err)
	}

	hr.dirty = false
	hr.logger.Debug("health state persisted", "path", hr.cfg.PersistPath)
	return nil
}

func (hr *HealthRegistry) load() error {
	data, err := os.ReadFile(hr.cfg.PersistPath)
	if err != nil {
		return err
	}

	var snapshot healthSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("parse health state: %w", err)
	}

	hr.targets = snapshot.Targets
	if hr.targets == nil {
		hr.targets = make(map[string]*TargetHealth)
	}

	hr.logger.Debug("health state loaded",
		"path", hr.cfg.PersistPath,
		"targets", len(hr.targets),
	)
	return nil
}
