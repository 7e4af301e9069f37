package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/anirudhshenoy/nanobot/internal/routing"
)

// clientSource yields a backend for a route target, or nil when the target
// cannot be built. Satisfied by *Cache.
type clientSource interface {
	Get(target routing.Target) Backend
}

// Dispatcher walks the fallback chain produced by the routing engine and
// returns the first successful backend response. It never returns a Go error:
// every outcome, including total exhaustion, is a *Response.
type Dispatcher struct {
	engine          *routing.Engine
	clients         clientSource
	health          *HealthRegistry
	dir             ProviderDirectory
	defaultProvider string
	routingEnabled  bool
	logger          *slog.Logger

	mu           sync.Mutex
	lastProvider string
}

// NewDispatcher creates a dispatcher. health may be nil when outcome tracking
// is not wanted.
func NewDispatcher(engine *routing.Engine, clients clientSource, health *HealthRegistry, dir ProviderDirectory, defaultProvider string, routingEnabled bool, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		engine:          engine,
		clients:         clients,
		health:          health,
		dir:             dir,
		defaultProvider: defaultProvider,
		routingEnabled:  routingEnabled,
		logger:          logger.With("component", "dispatcher"),
	}
}

// LastProvider returns the provider that served the most recent successful
// request, or "" if none has succeeded yet.
func (d *Dispatcher) LastProvider() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastProvider
}

// Chat routes the request and attempts each target in the decided chain in
// order. model, when non-empty, is a caller-preferred model id; it biases the
// decision but does not override a confident tier classification.
func (d *Dispatcher) Chat(ctx context.Context, messages []Message, tools []ToolDef, model string, maxTokens int, temperature float64) *Response {
	userText := extractUserText(messages)
	systemText := extractSystemText(messages)
	estimatedTokens := estimateTokens(systemText, userText)

	var preferred *routing.Target
	if model != "" {
		provider := d.dir.ProviderName(model)
		if provider == "" {
			provider = d.defaultProvider
		}
		preferred = &routing.Target{Model: model, Provider: provider}
	}

	decision := d.engine.Decide(userText, systemText, estimatedTokens, preferred, !d.routingEnabled)

	requestID := uuid.NewString()[:8]
	d.logger.Info("dispatching request",
		"request_id", requestID,
		"primary", decision.Primary.String(),
		"chain_len", len(decision.Chain),
		"reason", decision.Reason,
	)

	var lastError *Response
	for i, target := range decision.Chain {
		backend := d.clients.Get(target)
		if backend == nil {
			d.logger.Warn("skipping unbuildable target",
				"request_id", requestID,
				"target", target.String(),
			)
			continue
		}

		resp := backend.Chat(ctx, messages, tools, target.Model, maxTokens, temperature)
		if resp.Provider == "" {
			resp.Provider = target.Provider
		}
		if resp.Model == "" {
			resp.Model = target.Model
		}

		if !resp.IsError() {
			if d.health != nil {
				d.health.RecordSuccess(target)
			}
			d.mu.Lock()
			d.lastProvider = resp.Provider
			d.mu.Unlock()
			if i > 0 {
				d.logger.Info("fallback succeeded",
					"request_id", requestID,
					"target", target.String(),
					"attempt", i+1,
				)
			}
			return resp
		}

		lastError = resp
		kind := ErrKindServer
		if resp.Err != nil {
			kind = resp.Err.Kind
		}
		if d.health != nil {
			d.health.RecordFailure(target, kind)
		}
		d.logger.Warn("attempt failed",
			"request_id", requestID,
			"target", target.String(),
			"attempt", i+1,
			"error_kind", string(kind),
		)

		// A dead context means remaining attempts would fail the same way.
		if ctx.Err() != nil {
			break
		}
	}

	if lastError != nil {
		return lastError
	}

	def := d.engine.Default()
	return errorResponse(ErrKindNoRoute, "no valid provider/model route found.", def.Model, def.Provider)
}

// DescribeRouting returns a human-readable trace of the routing decision the
// dispatcher would make for the given query, without calling any backend.
func (d *Dispatcher) DescribeRouting(query string) string {
	estimatedTokens := estimateTokens("", query)
	decision := d.engine.Decide(query, "", estimatedTokens, nil, !d.routingEnabled)

	mode := "heuristic"
	if !d.routingEnabled {
		mode = "disabled"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Routing mode: %s\n", mode)
	fmt.Fprintf(&b, "Default: %s\n", d.engine.Default().String())
	fmt.Fprintf(&b, "Selected: %s\n", decision.Primary.String())
	fmt.Fprintf(&b, "Reason: %s\n", decision.Reason)
	if d.routingEnabled {
		fmt.Fprintf(&b, "Tier: %s  score=%.3f  confidence=%.2f  agentic=%.2f\n",
			decision.Tier, decision.Score, decision.Confidence, decision.AgenticScore)
		if len(decision.Signals) > 0 {
			signals := decision.Signals
			if len(signals) > 6 {
				signals = signals[:6]
			}
			fmt.Fprintf(&b, "Signals: %s\n", strings.Join(signals, ", "))
		}
	}

	if len(decision.Chain) > 1 {
		parts := make([]string, 0, len(decision.Chain)-1)
		for _, t := range decision.Chain[1:] {
			parts = append(parts, t.String())
		}
		fmt.Fprintf(&b, "Fallbacks: %s\n", strings.Join(parts, " -> "))
	} else {
		b.WriteString("Fallbacks: (none)\n")
	}
	return b.String()
}

// estimateTokens approximates the token count of the combined prompt text
// using the 4-characters-per-token heuristic. Always at least 1.
func estimateTokens(systemText, userText string) int {
	n := len(systemText+" "+userText) / 4
	if n < 1 {
		return 1
	}
	return n
}
