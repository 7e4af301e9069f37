package providers

import "strings"

// Spec describes one known provider. The registry is a closed mapping:
// config provider names are validated against it at load time, so an unknown
// name is a configuration error rather than a silent lookup miss.
type Spec struct {
	Name string
	// Keywords matched against model ids (e.g. "claude" -> anthropic).
	Keywords []string
	// Gateway providers aggregate many upstream models behind one endpoint
	// and get a default API base when no override is configured.
	Gateway        bool
	DefaultAPIBase string
}

// Registry lists all known providers. Order matters: model matching walks it
// front to back, gateways first.
var Registry = []Spec{
	{Name: "openrouter", Keywords: []string{"openrouter"}, Gateway: true, DefaultAPIBase: "https://openrouter.ai/api/v1"},
	{Name: "aihubmix", Keywords: []string{"aihubmix"}, Gateway: true, DefaultAPIBase: "https://aihubmix.com/v1"},
	{Name: "siliconflow", Keywords: []string{"siliconflow"}, Gateway: true, DefaultAPIBase: "https://api.siliconflow.cn/v1"},
	{Name: "anthropic", Keywords: []string{"anthropic", "claude"}, DefaultAPIBase: "https://api.anthropic.com/v1"},
	{Name: "openai", Keywords: []string{"openai", "gpt", "o1", "o3", "o4"}, DefaultAPIBase: "https://api.openai.com/v1"},
	{Name: "deepseek", Keywords: []string{"deepseek"}, DefaultAPIBase: "https://api.deepseek.com/v1"},
	{Name: "groq", Keywords: []string{"groq"}, DefaultAPIBase: "https://api.groq.com/openai/v1"},
	{Name: "gemini", Keywords: []string{"gemini"}, DefaultAPIBase: "https://generativelanguage.googleapis.com/v1beta/openai"},
	{Name: "zhipu", Keywords: []string{"zhipu", "glm"}, DefaultAPIBase: "https://open.bigmodel.cn/api/paas/v4"},
	{Name: "moonshot", Keywords: []string{"moonshot", "kimi"}, DefaultAPIBase: "https://api.moonshot.cn/v1"},
	{Name: "vllm", Keywords: []string{"vllm"}, DefaultAPIBase: "http://localhost:8000/v1"},
	{Name: "custom", Keywords: []string{"custom"}},
}

// NormalizeName canonicalises provider identifiers: "OpenAI-Codex" -> "openai_codex".
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// FindByName returns the spec for a provider name, or nil if unknown.
func FindByName(name string) *Spec {
	normalized := NormalizeName(name)
	for i := range Registry {
		if Registry[i].Name == normalized {
			return &Registry[i]
		}
	}
	return nil
}

// MatchModel matches a model id to a provider spec: an explicit
// "provider/model" prefix wins, then keyword matching in registry order.
// Returns nil when nothing matches.
func MatchModel(model string) *Spec {
	lower := strings.ToLower(model)

	if prefix, _, ok := strings.Cut(lower, "/"); ok {
		if spec := FindByName(prefix); spec != nil {
			return spec
		}
	}

	for i := range Registry {
		for _, kw := range Registry[i].Keywords {
			if strings.Contains(lower, kw) {
				return &Registry[i]
			}
		}
	}
	return nil
}
