package routing

import (
	"fmt"
	"log/slog"
)

// Decision is the outcome of one routing decision: an ordered, deduplicated
// chain of targets to attempt plus the classification that produced it.
// The chain is never empty and its first element equals Primary.
type Decision struct {
	Primary      Target   `json:"primary"`
	Chain        []Target `json:"chain"`
	Reason       string   `json:"reason"`
	Tier         Tier     `json:"tier"`
	Score        float64  `json:"score"`
	Confidence   float64  `json:"confidence"`
	Signals      []string `json:"signals,omitempty"`
	AgenticScore float64  `json:"agenticScore"`
}

// Engine combines classifier output, an optional caller-preferred target and
// the force-default flag into route decisions against a static table.
type Engine struct {
	table      *Table
	classifier *Classifier
	logger     *slog.Logger
}

// NewEngine creates a routing engine over the given table and classifier.
func NewEngine(table *Table, classifier *Classifier, logger *slog.Logger) *Engine {
	return &Engine{
		table:      table,
		classifier: classifier,
		logger:     logger.With("component", "routing-engine"),
	}
}

// Default returns the table's default target.
func (e *Engine) Default() Target {
	return e.table.Default
}

// Decide produces the ordered fallback chain for one request.
//
// A preferred target only replaces the default used when the classifier is
// ambiguous or the selected tier has no configured target; it does not pin
// the primary when the classifier confidently selects a tier of its own.
func (e *Engine) Decide(query, systemPrompt string, estimatedTokens int, preferred *Target, forceDefault bool) Decision {
	effectiveDefault := e.table.Default
	if preferred != nil {
		effectiveDefault = *preferred
	}

	if forceDefault {
		return Decision{
			Primary: effectiveDefault,
			Chain:   dedupeTargets(append([]Target{effectiveDefault}, e.table.GlobalFallbacks...)),
			Reason:  "routing disabled",
			Tier:    TierNone,
		}
	}

	result := e.classifier.Classify(query, systemPrompt, estimatedTokens)

	var primary Target
	var extra []Target
	var reason string

	switch {
	case result.Tier != TierNone:
		if route, ok := e.table.Route(result.Tier); ok {
			primary = route.Primary
			extra = route.Fallback
			reason = fmt.Sprintf("classified tier %s (score=%.3f, confidence=%.2f)",
				result.Tier, result.Score, result.Confidence)
		} else {
			primary = effectiveDefault
			reason = fmt.Sprintf("tier %s selected but no target configured", result.Tier)
		}
	default:
		primary = effectiveDefault
		reason = fmt.Sprintf("ambiguous classification (score=%.3f, confidence=%.2f)",
			result.Score, result.Confidence)
	}

	chain := make([]Target, 0, 1+len(extra)+len(e.table.GlobalFallbacks))
	chain = append(chain, primary)
	chain = append(chain, extra...)
	chain = append(chain, e.table.GlobalFallbacks...)

	decision := Decision{
		Primary:      primary,
		Chain:        dedupeTargets(chain),
		Reason:       reason,
		Tier:         result.Tier,
		Score:        result.Score,
		Confidence:   result.Confidence,
		Signals:      result.Signals,
		AgenticScore: result.AgenticScore,
	}

	e.logger.Debug("routing decision",
		"tier", decision.Tier.String(),
		"primary", decision.Primary.String(),
		"chain_len", len(decision.Chain),
		"reason", decision.Reason,
	)

	return decision
}

// dedupeTargets removes duplicate (provider, model) pairs keeping first
// occurrence order.
func dedupeTargets(targets []Target) []Target {
	seen := make(map[Target]struct{}, len(targets))
	unique := make([]Target, 0, len(targets))
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	return unique
}
