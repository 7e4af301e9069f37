package routing

// Dimension names, used as keys in the weights map.
const (
	DimTokenCount          = "tokenCount"
	DimCodePresence        = "codePresence"
	DimReasoningMarkers    = "reasoningMarkers"
	DimTechnicalTerms      = "technicalTerms"
	DimCreativeMarkers     = "creativeMarkers"
	DimSimpleIndicators    = "simpleIndicators"
	DimMultiStepPatterns   = "multiStepPatterns"
	DimQuestionComplexity  = "questionComplexity"
	DimImperativeVerbs     = "imperativeVerbs"
	DimConstraintCount     = "constraintCount"
	DimOutputFormat        = "outputFormat"
	DimReferenceComplexity = "referenceComplexity"
	DimNegationComplexity  = "negationComplexity"
	DimDomainSpecificity   = "domainSpecificity"
	DimAgenticTask         = "agenticTask"
)

// TokenThresholds holds the estimated-token boundaries for the token-count
// dimension. Below Simple scores -1, above Complex scores +1.
type TokenThresholds struct {
	Simple  int `json:"simple" yaml:"simple" toml:"simple"`
	Complex int `json:"complex" yaml:"complex" toml:"complex"`
}

// TierBoundaries partitions the weighted score line into the four tiers.
// Values must be strictly ascending.
type TierBoundaries struct {
	SimpleMedium     float64 `json:"simpleMedium" yaml:"simpleMedium" toml:"simpleMedium"`
	MediumComplex    float64 `json:"mediumComplex" yaml:"mediumComplex" toml:"mediumComplex"`
	ComplexReasoning float64 `json:"complexReasoning" yaml:"complexReasoning" toml:"complexReasoning"`
}

// MatchThresholds maps a keyword match count to one of three score buckets:
// zero matches scores the "none" value, >= Low the "low" value and >= High
// the "high" value.
type MatchThresholds struct {
	Low  int `json:"low" yaml:"low" toml:"low"`
	High int `json:"high" yaml:"high" toml:"high"`
}

// ScoringConfig holds the weighted-scoring parameters for the classifier.
// It is loaded once at startup and read-only thereafter.
type ScoringConfig struct {
	TokenCountThresholds TokenThresholds `json:"tokenCountThresholds" yaml:"tokenCountThresholds" toml:"tokenCountThresholds"`

	CodeKeywords         []string `json:"codeKeywords" yaml:"codeKeywords" toml:"codeKeywords"`
	ReasoningKeywords    []string `json:"reasoningKeywords" yaml:"reasoningKeywords" toml:"reasoningKeywords"`
	SimpleKeywords       []string `json:"simpleKeywords" yaml:"simpleKeywords" toml:"simpleKeywords"`
	TechnicalKeywords    []string `json:"technicalKeywords" yaml:"technicalKeywords" toml:"technicalKeywords"`
	CreativeKeywords     []string `json:"creativeKeywords" yaml:"creativeKeywords" toml:"creativeKeywords"`
	ImperativeVerbs      []string `json:"imperativeVerbs" yaml:"imperativeVerbs" toml:"imperativeVerbs"`
	ConstraintIndicators []string `json:"constraintIndicators" yaml:"constraintIndicators" toml:"constraintIndicators"`
	OutputFormatKeywords []string `json:"outputFormatKeywords" yaml:"outputFormatKeywords" toml:"outputFormatKeywords"`
	ReferenceKeywords    []string `json:"referenceKeywords" yaml:"referenceKeywords" toml:"referenceKeywords"`
	NegationKeywords     []string `json:"negationKeywords" yaml:"negationKeywords" toml:"negationKeywords"`
	DomainKeywords       []string `json:"domainSpecificKeywords" yaml:"domainSpecificKeywords" toml:"domainSpecificKeywords"`
	AgenticTaskKeywords  []string `json:"agenticTaskKeywords" yaml:"agenticTaskKeywords" toml:"agenticTaskKeywords"`

	// MatchThresholds applies to all keyword dimensions except agenticTask,
	// which uses its own fixed bucket scale.
	MatchThresholds MatchThresholds `json:"matchThresholds" yaml:"matchThresholds" toml:"matchThresholds"`

	// DimensionWeights maps dimension name to weight. Dimensions absent from
	// the map contribute nothing to the weighted score.
	DimensionWeights map[string]float64 `json:"dimensionWeights" yaml:"dimensionWeights" toml:"dimensionWeights"`

	TierBoundaries      TierBoundaries `json:"tierBoundaries" yaml:"tierBoundaries" toml:"tierBoundaries"`
	ConfidenceSteepness float64        `json:"confidenceSteepness" yaml:"confidenceSteepness" toml:"confidenceSteepness"`
	ConfidenceThreshold float64        `json:"confidenceThreshold" yaml:"confidenceThreshold" toml:"confidenceThreshold"`
}

// DefaultScoringConfig returns the tuned default scoring parameters.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		TokenCountThresholds: TokenThresholds{Simple: 400, Complex: 2500},

		CodeKeywords: []string{
			"code", "function", "class", "api", "debug", "bug", "error", "stack trace",
			"python", "javascript", "typescript", "sql", "refactor",
		},
		ReasoningKeywords: []string{"reason", "step by step", "prove", "analyze", "compare", "why"},
		SimpleKeywords:    []string{"quick", "brief", "simple", "short answer", "tldr"},
		TechnicalKeywords: []string{
			"architecture", "distributed", "latency", "throughput", "protocol",
			"complexity", "optimization", "tradeoff",
		},
		CreativeKeywords:     []string{"story", "poem", "creative", "brainstorm", "rewrite", "tone"},
		ImperativeVerbs:      []string{"build", "implement", "design", "create", "generate", "optimize"},
		ConstraintIndicators: []string{"must", "should", "cannot", "don't", "without", "under", "limit", "constraint"},
		OutputFormatKeywords: []string{"json", "table", "markdown", "yaml", "csv", "bullet points", "format"},
		ReferenceKeywords:    []string{"cite", "reference", "source", "link", "paper", "documentation"},
		NegationKeywords:     []string{"not", "never", "avoid", "exclude", "without"},
		DomainKeywords: []string{
			"kubernetes", "terraform", "postgres", "redis", "pydantic", "litellm",
			"oauth", "grpc", "cuda", "vector database",
		},
		AgenticTaskKeywords: []string{
			"plan", "execute", "iterate", "multi-step", "autonomous", "workflow",
			"orchestrate", "tool call", "agent",
		},

		MatchThresholds: MatchThresholds{Low: 1, High: 3},

		DimensionWeights: map[string]float64{
			DimTokenCount:          0.08,
			DimCodePresence:        0.14,
			DimReasoningMarkers:    0.14,
			DimTechnicalTerms:      0.08,
			DimCreativeMarkers:     0.04,
			DimSimpleIndicators:    0.16,
			DimMultiStepPatterns:   0.06,
			DimQuestionComplexity:  0.05,
			DimImperativeVerbs:     0.05,
			DimConstraintCount:     0.05,
			DimOutputFormat:        0.04,
			DimReferenceComplexity: 0.03,
			DimNegationComplexity:  0.03,
			DimDomainSpecificity:   0.05,
			DimAgenticTask:         0.10,
		},

		TierBoundaries: TierBoundaries{
			SimpleMedium:     -0.1,
			MediumComplex:    0.15,
			ComplexReasoning: 0.4,
		},
		ConfidenceSteepness: 5.0,
		ConfidenceThreshold: 0.62,
	}
}
