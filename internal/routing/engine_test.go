package routing

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

var (
	targetDefault   = Target{Model: "claude-opus-4", Provider: "anthropic"}
	targetSimple    = Target{Model: "deepseek-chat", Provider: "deepseek"}
	targetSimpleFB  = Target{Model: "gpt-4o-mini", Provider: "openai"}
	targetGlobalFB  = Target{Model: "llama-3.3-70b", Provider: "groq"}
	targetPreferred = Target{Model: "kimi-k2", Provider: "moonshot"}
)

func testTable() *Table {
	return &Table{
		Default:         targetDefault,
		GlobalFallbacks: []Target{targetGlobalFB, targetDefault},
		Tiers: map[Tier]TierRoute{
			TierSimple: {Primary: targetSimple, Fallback: []Target{targetSimpleFB}},
		},
	}
}

func testEngine(t *testing.T, cfg ScoringConfig) *Engine {
	t.Helper()
	return NewEngine(testTable(), NewClassifier(cfg), slog.Default())
}

func checkWellFormed(t *testing.T, d Decision) {
	t.Helper()
	if len(d.Chain) == 0 {
		t.Fatal("chain must not be empty")
	}
	if d.Chain[0] != d.Primary {
		t.Errorf("chain[0] = %s, want primary %s", d.Chain[0], d.Primary)
	}
	seen := make(map[Target]bool)
	for _, tgt := range d.Chain {
		if seen[tgt] {
			t.Errorf("duplicate target in chain: %s", tgt)
		}
		seen[tgt] = true
	}
}

func TestDecideDeterministic(t *testing.T) {
	e := testEngine(t, DefaultScoringConfig())

	a := e.Decide("quick simple question, tldr please", "", 50, nil, false)
	b := e.Decide("quick simple question, tldr please", "", 50, nil, false)

	if !reflect.DeepEqual(a, b) {
		t.Errorf("decide is not deterministic:\n  first:  %+v\n  second: %+v", a, b)
	}
}

func TestDecideConfidentTierUsesTierRoute(t *testing.T) {
	e := testEngine(t, DefaultScoringConfig())

	d := e.Decide("quick simple question, tldr please", "", 50, nil, false)
	checkWellFormed(t, d)

	if d.Tier != TierSimple {
		t.Fatalf("expected SIMPLE tier, got %s", d.Tier)
	}
	if d.Primary != targetSimple {
		t.Errorf("primary = %s, want %s", d.Primary, targetSimple)
	}
	want := []Target{targetSimple, targetSimpleFB, targetGlobalFB, targetDefault}
	if !reflect.DeepEqual(d.Chain, want) {
		t.Errorf("chain = %v, want %v", d.Chain, want)
	}
	if !strings.Contains(d.Reason, "SIMPLE") {
		t.Errorf("reason should record the tier, got %q", d.Reason)
	}
}

func TestDecideTierWithoutRouteFallsBackToDefault(t *testing.T) {
	cfg := DefaultScoringConfig()
	e := testEngine(t, cfg)

	// Reasoning override fires but the table has no REASONING entry.
	d := e.Decide("why does this happen, analyze it step by step", "", 50, nil, false)
	checkWellFormed(t, d)

	if d.Tier != TierReasoning {
		t.Fatalf("expected REASONING tier, got %s", d.Tier)
	}
	if d.Primary != targetDefault {
		t.Errorf("primary = %s, want default %s", d.Primary, targetDefault)
	}
	if !strings.Contains(d.Reason, "no target configured") {
		t.Errorf("reason should note the missing target, got %q", d.Reason)
	}
}

func TestDecideAmbiguousFallsBackToDefault(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.ConfidenceThreshold = 0.7
	e := testEngine(t, cfg)

	d := e.Decide("tell me a little more", "", 1000, nil, false)
	checkWellFormed(t, d)

	if d.Tier != TierNone {
		t.Fatalf("expected NONE tier, got %s", d.Tier)
	}
	if d.Primary != targetDefault {
		t.Errorf("primary = %s, want default %s", d.Primary, targetDefault)
	}
	if !strings.Contains(d.Reason, "ambiguous") {
		t.Errorf("reason should note ambiguity, got %q", d.Reason)
	}
}

func TestDecideAmbiguousUsesPreferredAsDefault(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.ConfidenceThreshold = 0.7
	e := testEngine(t, cfg)

	d := e.Decide("tell me a little more", "", 1000, &targetPreferred, false)
	checkWellFormed(t, d)

	if d.Primary != targetPreferred {
		t.Errorf("ambiguous decision should use preferred target, got %s", d.Primary)
	}
}

// Preferred targets only replace the default fallback; a confidently
// classified tier with its own configured target still wins.
func TestPreferredTargetLosesToConfidentTier(t *testing.T) {
	e := testEngine(t, DefaultScoringConfig())

	d := e.Decide("quick simple question, tldr please", "", 50, &targetPreferred, false)
	checkWellFormed(t, d)

	if d.Tier != TierSimple {
		t.Fatalf("expected SIMPLE tier, got %s", d.Tier)
	}
	if d.Primary != targetSimple {
		t.Errorf("confident tier should win over preferred target: primary = %s, want %s", d.Primary, targetSimple)
	}
	for _, tgt := range d.Chain {
		if tgt == targetPreferred {
			t.Errorf("preferred target should not appear in a tier-routed chain, got %v", d.Chain)
		}
	}
}

func TestDecideForceDefault(t *testing.T) {
	e := testEngine(t, DefaultScoringConfig())

	d := e.Decide("why does this happen, analyze it step by step", "", 50, nil, true)
	checkWellFormed(t, d)

	if d.Reason != "routing disabled" {
		t.Errorf("reason = %q, want %q", d.Reason, "routing disabled")
	}
	if d.Tier != TierNone {
		t.Errorf("forced decision should carry no tier, got %s", d.Tier)
	}
	want := []Target{targetDefault, targetGlobalFB}
	if !reflect.DeepEqual(d.Chain, want) {
		t.Errorf("chain = %v, want %v", d.Chain, want)
	}
}

func TestDecideForceDefaultWithPreferred(t *testing.T) {
	e := testEngine(t, DefaultScoringConfig())

	d := e.Decide("", "", 1, &targetPreferred, true)
	checkWellFormed(t, d)

	want := []Target{targetPreferred, targetGlobalFB, targetDefault}
	if !reflect.DeepEqual(d.Chain, want) {
		t.Errorf("chain = %v, want %v", d.Chain, want)
	}
}

func TestDedupeTargets(t *testing.T) {
	a := Target{Model: "m1", Provider: "p1"}
	b := Target{Model: "m2", Provider: "p1"}

	got := dedupeTargets([]Target{a, b, a, b, a})
	want := []Target{a, b}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dedupeTargets = %v, want %v", got, want)
	}
}
