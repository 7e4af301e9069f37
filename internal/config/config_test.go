package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anirudhshenoy/nanobot/internal/routing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}
	return path
}

func validJSON(t *testing.T) string {
	return writeFile(t, "config.json", `{
		"server": {"dataDir": "`+t.TempDir()+`"},
		"defaults": {"model": "claude-opus-4", "provider": "anthropic"},
		"routing": {
			"enabled": true,
			"fallbacks": [{"model": "llama-3.3-70b", "provider": "groq"}],
			"tiers": {
				"simple": {"primary": {"model": "deepseek-chat"}}
			}
		},
		"providers": {
			"anthropic": {"apiKey": "sk-ant"},
			"deepseek": {"apiKey": "sk-ds"},
			"groq": {"apiKey": "sk-groq"}
		}
	}`)
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(validJSON(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Defaults.Model != "claude-opus-4" {
		t.Errorf("Defaults.Model = %q", cfg.Defaults.Model)
	}
	if !cfg.Routing.Enabled {
		t.Error("Routing.Enabled = false")
	}
	// Untouched fields keep defaults.
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Defaults.MaxTokens != 8192 {
		t.Errorf("Defaults.MaxTokens = %d, want default", cfg.Defaults.MaxTokens)
	}
	if len(cfg.Routing.Scoring.ReasoningKeywords) == 0 {
		t.Error("scoring defaults not applied")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  dataDir: `+t.TempDir()+`
defaults:
  model: gpt-4o
providers:
  openai:
    apiKey: sk-oai
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Defaults.Model != "gpt-4o" {
		t.Errorf("Defaults.Model = %q", cfg.Defaults.Model)
	}
	if s, ok := cfg.ProviderByName("openai"); !ok || s.APIKey != "sk-oai" {
		t.Errorf("openai settings = %+v, %v", s, ok)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[server]
dataDir = "`+t.TempDir()+`"

[defaults]
model = "deepseek-chat"

[providers.deepseek]
apiKey = "sk-ds"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Defaults.Model != "deepseek-chat" {
		t.Errorf("Defaults.Model = %q", cfg.Defaults.Model)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "config.ini", "x = 1")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestValidateUnknownProvider(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"server": {"dataDir": "`+t.TempDir()+`"},
		"defaults": {"model": "m"},
		"providers": {"notaprovider": {"apiKey": "k"}}
	}`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("err = %v, want unknown provider", err)
	}
}

func TestValidateMissingDefaultModel(t *testing.T) {
	path := writeFile(t, "config.json", `{"providers": {}}`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing defaults.model")
	}
}

func TestValidateBadBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults.Model = "m"
	cfg.Routing.Scoring.TierBoundaries = routing.TierBoundaries{
		SimpleMedium:     0.4,
		MediumComplex:    0.15,
		ComplexReasoning: -0.1,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for descending boundaries")
	}
}

func TestValidateBadSteepness(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults.Model = "m"
	cfg.Routing.Scoring.ConfidenceSteepness = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero steepness")
	}
}

func TestValidateBadThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults.Model = "m"
	cfg.Routing.Scoring.ConfidenceThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for threshold > 1")
	}
}

func TestBuildTable(t *testing.T) {
	cfg, err := Load(validJSON(t))
	if err != nil {
		t.Fatal(err)
	}

	table := cfg.BuildTable()
	want := routing.Target{Model: "claude-opus-4", Provider: "anthropic"}
	if table.Default != want {
		t.Errorf("Default = %v, want %v", table.Default, want)
	}
	if len(table.GlobalFallbacks) != 1 || table.GlobalFallbacks[0].Provider != "groq" {
		t.Errorf("GlobalFallbacks = %v", table.GlobalFallbacks)
	}

	route, ok := table.Route(routing.TierSimple)
	if !ok {
		t.Fatal("simple tier not configured")
	}
	// Provider not pinned in config: inferred from the model id.
	if route.Primary.Provider != "deepseek" {
		t.Errorf("simple primary provider = %q, want deepseek", route.Primary.Provider)
	}

	if _, ok := table.Route(routing.TierReasoning); ok {
		t.Error("reasoning tier should be absent")
	}
}

func TestProviderName(t *testing.T) {
	cfg, err := Load(validJSON(t))
	if err != nil {
		t.Fatal(err)
	}

	if got := cfg.ProviderName("deepseek-chat"); got != "deepseek" {
		t.Errorf("ProviderName(deepseek-chat) = %q", got)
	}
	// gpt matches openai but openai is not configured.
	if got := cfg.ProviderName("gpt-4o"); got != "" {
		t.Errorf("ProviderName(gpt-4o) = %q, want empty", got)
	}
	if got := cfg.ProviderName("mystery-model"); got != "" {
		t.Errorf("ProviderName(mystery) = %q, want empty", got)
	}
}

func TestAPIBaseForProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers["openrouter"] = ProviderConfig{APIKey: "k"}
	cfg.Providers["deepseek"] = ProviderConfig{APIKey: "k", APIBase: "https://proxy.internal/v1"}

	// Gateway without an override gets the registry default.
	if got := cfg.APIBaseForProvider("openrouter", "openrouter/auto"); got != "https://openrouter.ai/api/v1" {
		t.Errorf("gateway base = %q", got)
	}
	// Explicit override wins.
	if got := cfg.APIBaseForProvider("deepseek", "deepseek-chat"); got != "https://proxy.internal/v1" {
		t.Errorf("override base = %q", got)
	}
	// Standard provider without an override resolves in the client.
	if got := cfg.APIBaseForProvider("anthropic", "claude-opus-4"); got != "" {
		t.Errorf("standard base = %q, want empty", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(validJSON(t))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "saved.json")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load saved: %v", err)
	}
	if reloaded.Defaults.Model != cfg.Defaults.Model {
		t.Errorf("round trip lost defaults.model")
	}
}
