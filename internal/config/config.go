package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/anirudhshenoy/nanobot/internal/providers"
	"github.com/anirudhshenoy/nanobot/internal/routing"
)

// Config holds all nanobot configuration. It is loaded once at startup and
// treated as immutable afterwards.
type Config struct {
	Server    ServerConfig              `json:"server" yaml:"server" toml:"server"`
	Defaults  DefaultsConfig            `json:"defaults" yaml:"defaults" toml:"defaults"`
	Routing   RoutingConfig             `json:"routing" yaml:"routing" toml:"routing"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers" toml:"providers"`
}

type ServerConfig struct {
	Host       string `json:"host" yaml:"host" toml:"host"`
	Port       int    `json:"port" yaml:"port" toml:"port"`
	DataDir    string `json:"dataDir" yaml:"dataDir" toml:"dataDir"`
	LogLevel   string `json:"logLevel" yaml:"logLevel" toml:"logLevel"`
	AuthSecret string `json:"authSecret,omitempty" yaml:"authSecret" toml:"authSecret"`
}

// DefaultsConfig names the model used when routing is disabled or the
// classifier cannot decide, plus request defaults.
type DefaultsConfig struct {
	Model       string  `json:"model" yaml:"model" toml:"model"`
	Provider    string  `json:"provider,omitempty" yaml:"provider" toml:"provider"`
	MaxTokens   int     `json:"maxTokens" yaml:"maxTokens" toml:"maxTokens"`
	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
}

// TargetRef names a model and optionally pins its provider.
type TargetRef struct {
	Model    string `json:"model" yaml:"model" toml:"model"`
	Provider string `json:"provider,omitempty" yaml:"provider" toml:"provider"`
}

// TierTarget is the primary target plus ordered fallbacks for one tier.
type TierTarget struct {
	Primary  TargetRef   `json:"primary" yaml:"primary" toml:"primary"`
	Fallback []TargetRef `json:"fallback,omitempty" yaml:"fallback" toml:"fallback"`
}

// TiersConfig maps complexity tiers to targets. Nil tiers route to the
// default model.
type TiersConfig struct {
	Simple    *TierTarget `json:"simple,omitempty" yaml:"simple" toml:"simple"`
	Medium    *TierTarget `json:"medium,omitempty" yaml:"medium" toml:"medium"`
	Complex   *TierTarget `json:"complex,omitempty" yaml:"complex" toml:"complex"`
	Reasoning *TierTarget `json:"reasoning,omitempty" yaml:"reasoning" toml:"reasoning"`
}

type RoutingConfig struct {
	Enabled   bool                  `json:"enabled" yaml:"enabled" toml:"enabled"`
	Fallbacks []TargetRef           `json:"fallbacks,omitempty" yaml:"fallbacks" toml:"fallbacks"`
	Tiers     TiersConfig           `json:"tiers" yaml:"tiers" toml:"tiers"`
	Scoring   routing.ScoringConfig `json:"scoring" yaml:"scoring" toml:"scoring"`
}

type ProviderConfig struct {
	APIKey       string            `json:"apiKey,omitempty" yaml:"apiKey" toml:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty" yaml:"apiBase" toml:"apiBase"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty" yaml:"extraHeaders" toml:"extraHeaders"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8080,
			DataDir:  "./data",
			LogLevel: "info",
		},
		Defaults: DefaultsConfig{
			MaxTokens:   8192,
			Temperature: 0.7,
		},
		Routing: RoutingConfig{
			Enabled: true,
			Scoring: routing.DefaultScoringConfig(),
		},
		Providers: make(map[string]ProviderConfig),
	}
}

// Load reads a config file, picking the decoder by extension (.json, .yaml,
// .yml or .toml), applies it over defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.Server.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return cfg, nil
}

// Save writes config to a JSON file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0640)
}

// Validate rejects configurations that cannot produce a working router.
func (c *Config) Validate() error {
	if c.Defaults.Model == "" {
		return fmt.Errorf("defaults.model is required")
	}

	for name := range c.Providers {
		if providers.FindByName(name) == nil {
			return fmt.Errorf("unknown provider %q in providers", name)
		}
	}
	if c.Defaults.Provider != "" && providers.FindByName(c.Defaults.Provider) == nil {
		return fmt.Errorf("unknown provider %q in defaults", c.Defaults.Provider)
	}
	for tierName, tt := range map[string]*TierTarget{
		"simple":    c.Routing.Tiers.Simple,
		"medium":    c.Routing.Tiers.Medium,
		"complex":   c.Routing.Tiers.Complex,
		"reasoning": c.Routing.Tiers.Reasoning,
	} {
		if tt == nil {
			continue
		}
		if tt.Primary.Model == "" {
			return fmt.Errorf("routing.tiers.%s: primary model is required", tierName)
		}
		if tt.Primary.Provider != "" && providers.FindByName(tt.Primary.Provider) == nil {
			return fmt.Errorf("routing.tiers.%s: unknown provider %q", tierName, tt.Primary.Provider)
		}
		for _, fb := range tt.Fallback {
			if fb.Provider != "" && providers.FindByName(fb.Provider) == nil {
				return fmt.Errorf("routing.tiers.%s: unknown fallback provider %q", tierName, fb.Provider)
			}
		}
	}
	for _, fb := range c.Routing.Fallbacks {
		if fb.Provider != "" && providers.FindByName(fb.Provider) == nil {
			return fmt.Errorf("routing.fallbacks: unknown provider %q", fb.Provider)
		}
	}

	b := c.Routing.Scoring.TierBoundaries
	if !(b.SimpleMedium < b.MediumComplex && b.MediumComplex < b.ComplexReasoning) {
		return fmt.Errorf("routing.scoring.tierBoundaries must be strictly ascending")
	}
	if c.Routing.Scoring.ConfidenceSteepness <= 0 {
		return fmt.Errorf("routing.scoring.confidenceSteepness must be positive")
	}
	if t := c.Routing.Scoring.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("routing.scoring.confidenceThreshold must be in [0, 1]")
	}
	if mt := c.Routing.Scoring.MatchThresholds; mt.Low < 1 || mt.High < mt.Low {
		return fmt.Errorf("routing.scoring.matchThresholds: need 1 <= low <= high")
	}

	return nil
}

// DefaultTarget returns the default route target. The provider is taken from
// config when pinned, otherwise inferred from the model id.
func (c *Config) DefaultTarget() routing.Target {
	return c.resolveTarget(TargetRef{Model: c.Defaults.Model, Provider: c.Defaults.Provider})
}

// BuildTable assembles the routing table from the tier configuration.
func (c *Config) BuildTable() *routing.Table {
	table := &routing.Table{
		Default: c.DefaultTarget(),
		Tiers:   make(map[routing.Tier]routing.TierRoute),
	}

	for _, fb := range c.Routing.Fallbacks {
		table.GlobalFallbacks = append(table.GlobalFallbacks, c.resolveTarget(fb))
	}

	for tier, tt := range map[routing.Tier]*TierTarget{
		routing.TierSimple:    c.Routing.Tiers.Simple,
		routing.TierMedium:    c.Routing.Tiers.Medium,
		routing.TierComplex:   c.Routing.Tiers.Complex,
		routing.TierReasoning: c.Routing.Tiers.Reasoning,
	} {
		if tt == nil {
			continue
		}
		route := routing.TierRoute{Primary: c.resolveTarget(tt.Primary)}
		for _, fb := range tt.Fallback {
			route.Fallback = append(route.Fallback, c.resolveTarget(fb))
		}
		table.Tiers[tier] = route
	}

	return table
}

func (c *Config) resolveTarget(ref TargetRef) routing.Target {
	provider := ref.Provider
	if provider == "" {
		provider = c.ProviderName(ref.Model)
	}
	return routing.Target{Model: ref.Model, Provider: providers.NormalizeName(provider)}
}

// ProviderName resolves a model id to a configured provider name, or "".
// An explicit "provider/" prefix wins over keyword matching, but only
// providers present in the config count.
func (c *Config) ProviderName(model string) string {
	spec := providers.MatchModel(model)
	if spec == nil {
		return ""
	}
	if _, ok := c.Providers[spec.Name]; !ok {
		return ""
	}
	return spec.Name
}

// ProviderByName returns connection settings for an explicit provider name.
func (c *Config) ProviderByName(name string) (providers.ProviderSettings, bool) {
	pc, ok := c.Providers[providers.NormalizeName(name)]
	if !ok {
		return providers.ProviderSettings{}, false
	}
	return providers.ProviderSettings{
		APIKey:       pc.APIKey,
		APIBase:      pc.APIBase,
		ExtraHeaders: pc.ExtraHeaders,
	}, true
}

// APIBaseForProvider returns the endpoint override for a provider: an
// explicit config value first, else the registry default for gateway
// providers, else "" (standard providers resolve their endpoint in the
// client).
func (c *Config) APIBaseForProvider(name, _ string) string {
	normalized := providers.NormalizeName(name)
	if pc, ok := c.Providers[normalized]; ok && pc.APIBase != "" {
		return pc.APIBase
	}
	if spec := providers.FindByName(normalized); spec != nil && spec.Gateway {
		return spec.DefaultAPIBase
	}
	return ""
}
