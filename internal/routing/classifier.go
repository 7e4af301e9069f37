package routing

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// DimensionScore holds a single dimension's result for one classification run.
type DimensionScore struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Signal string  `json:"signal,omitempty"`
}

// Result is the full classifier output for one request.
type Result struct {
	Score        float64  `json:"score"`
	Tier         Tier     `json:"tier"`
	Confidence   float64  `json:"confidence"`
	Signals      []string `json:"signals"`
	AgenticScore float64  `json:"agenticScore"`
}

// Classifier scores a request across 15 weighted dimensions and maps the
// result to a complexity tier. It holds no mutable state; a single Classifier
// is safe for concurrent use.
type Classifier struct {
	cfg ScoringConfig
}

// NewClassifier creates a Classifier for the given scoring config.
func NewClassifier(cfg ScoringConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Multi-step patterns (package-level, compiled once).
var (
	reFirstThen    = regexp.MustCompile(`first\b.*\bthen\b`)
	reStepNumber   = regexp.MustCompile(`step\s*\d`)
	reNumberedItem = regexp.MustCompile(`\d\.\s`)
)

// Classify evaluates the user and system text and returns the scoring result.
// Pure and deterministic: no I/O, no shared state.
func (c *Classifier) Classify(userText, systemText string, estimatedTokens int) Result {
	userLower := strings.ToLower(userText)
	combined := strings.ToLower(strings.TrimSpace(systemText + " " + userText))

	dims := []DimensionScore{
		c.tokenDim(estimatedTokens),
		c.keywordDim(DimCodePresence, combined, c.cfg.CodeKeywords, 0.5, 1.0),
		c.keywordDim(DimReasoningMarkers, userLower, c.cfg.ReasoningKeywords, 0.5, 1.0),
		c.keywordDim(DimTechnicalTerms, combined, c.cfg.TechnicalKeywords, 0.5, 1.0),
		c.keywordDim(DimCreativeMarkers, combined, c.cfg.CreativeKeywords, 0.5, 1.0),
		c.keywordDim(DimSimpleIndicators, userLower, c.cfg.SimpleKeywords, -0.5, -1.0),
		c.keywordDim(DimImperativeVerbs, combined, c.cfg.ImperativeVerbs, 0.5, 1.0),
		c.keywordDim(DimConstraintCount, combined, c.cfg.ConstraintIndicators, 0.5, 1.0),
		c.keywordDim(DimOutputFormat, combined, c.cfg.OutputFormatKeywords, 0.5, 1.0),
		c.keywordDim(DimReferenceComplexity, combined, c.cfg.ReferenceKeywords, 0.5, 1.0),
		c.keywordDim(DimNegationComplexity, combined, c.cfg.NegationKeywords, 0.5, 1.0),
		c.keywordDim(DimDomainSpecificity, combined, c.cfg.DomainKeywords, 0.5, 1.0),
		c.agenticDim(combined),
		c.multiStepDim(combined),
		c.questionDim(userText),
	}

	var score float64
	var signals []string
	var agentic float64
	for _, d := range dims {
		score += d.Score * c.cfg.DimensionWeights[d.Name]
		if d.Signal != "" {
			signals = append(signals, d.Signal)
		}
		if d.Name == DimAgenticTask {
			agentic = d.Score
		}
	}

	// Reasoning override: two or more distinct reasoning keywords in the user
	// text force the REASONING tier regardless of the boundary mapping.
	if countMatches(userLower, c.cfg.ReasoningKeywords) >= 2 {
		conf := calibrate(math.Max(score, 0.3), c.cfg.ConfidenceSteepness)
		if conf < 0.85 {
			conf = 0.85
		}
		return Result{
			Score:        score,
			Tier:         TierReasoning,
			Confidence:   conf,
			Signals:      signals,
			AgenticScore: agentic,
		}
	}

	tier, distance := SelectTier(score, c.cfg.TierBoundaries)
	confidence := calibrate(distance, c.cfg.ConfidenceSteepness)
	if confidence < c.cfg.ConfidenceThreshold {
		tier = TierNone
	}

	return Result{
		Score:        score,
		Tier:         tier,
		Confidence:   confidence,
		Signals:      signals,
		AgenticScore: agentic,
	}
}

// calibrate maps distance-from-boundary to confidence via a logistic curve.
func calibrate(distance, steepness float64) float64 {
	return 1.0 / (1.0 + math.Exp(-steepness*distance))
}

func (c *Classifier) tokenDim(estimatedTokens int) DimensionScore {
	d := DimensionScore{Name: DimTokenCount}
	switch {
	case estimatedTokens < c.cfg.TokenCountThresholds.Simple:
		d.Score = -1
	case estimatedTokens > c.cfg.TokenCountThresholds.Complex:
		d.Score = 1
	}
	if d.Score != 0 {
		d.Signal = fmt.Sprintf("%s: %d estimated tokens", DimTokenCount, estimatedTokens)
	}
	return d
}

// keywordDim counts keyword occurrences in text and buckets the count into
// the none/low/high scores for the dimension.
func (c *Classifier) keywordDim(name, text string, keywords []string, low, high float64) DimensionScore {
	matched := matchedKeywords(text, keywords)
	d := DimensionScore{Name: name}
	switch {
	case len(matched) == 0:
		return d
	case len(matched) >= c.cfg.MatchThresholds.High:
		d.Score = high
	case len(matched) >= c.cfg.MatchThresholds.Low:
		d.Score = low
	}
	if d.Score != 0 {
		d.Signal = name + ": " + strings.Join(truncateKeywords(matched), ", ")
	}
	return d
}

// agenticDim uses its own bucket scale; the value doubles as the diagnostic
// agentic score reported alongside the weighted sum.
func (c *Classifier) agenticDim(text string) DimensionScore {
	matched := matchedKeywords(text, c.cfg.AgenticTaskKeywords)
	d := DimensionScore{Name: DimAgenticTask}
	switch {
	case len(matched) == 0:
		return d
	case len(matched) >= 4:
		d.Score = 1.0
	case len(matched) == 3:
		d.Score = 0.6
	default:
		d.Score = 0.2
	}
	d.Signal = DimAgenticTask + ": " + strings.Join(truncateKeywords(matched), ", ")
	return d
}

func (c *Classifier) multiStepDim(text string) DimensionScore {
	d := DimensionScore{Name: DimMultiStepPatterns}
	if reFirstThen.MatchString(text) || reStepNumber.MatchString(text) || reNumberedItem.MatchString(text) {
		d.Score = 0.5
		d.Signal = DimMultiStepPatterns + ": sequential structure"
	}
	return d
}

func (c *Classifier) questionDim(userText string) DimensionScore {
	d := DimensionScore{Name: DimQuestionComplexity}
	if n := strings.Count(userText, "?"); n > 3 {
		d.Score = 0.5
		d.Signal = fmt.Sprintf("%s: %d question marks", DimQuestionComplexity, n)
	}
	return d
}

// matchedKeywords returns the keywords that occur in text (substring match,
// text is assumed lowercased already).
func matchedKeywords(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func countMatches(text string, keywords []string) int {
	return len(matchedKeywords(text, keywords))
}

// truncateKeywords limits a signal to at most 3 matched keywords.
func truncateKeywords(matched []string) []string {
	if len(matched) > 3 {
		return matched[:3]
	}
	return matched
}
