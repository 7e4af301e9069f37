package routing

import "encoding/json"

// Tier represents the model complexity tier.
type Tier int

const (
	// TierNone means the classifier was too uncertain to recommend a tier.
	TierNone Tier = iota - 1
	TierSimple    // Cheap, fast: greetings, simple factual questions
	TierMedium    // Mid-range: summarisation, light code, moderate Q&A
	TierComplex   // Full capability: deep analysis, complex code, multi-step
	TierReasoning // Specialised reasoning: math proofs, logic chains, planning
)

var tierNames = [...]string{"SIMPLE", "MEDIUM", "COMPLEX", "REASONING"}

func (t Tier) String() string {
	if t == TierNone {
		return "NONE"
	}
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return "UNKNOWN"
}

// MarshalJSON implements json.Marshaler.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var i int
		if err2 := json.Unmarshal(data, &i); err2 != nil {
			return err
		}
		*t = Tier(i)
		return nil
	}
	switch s {
	case "SIMPLE":
		*t = TierSimple
	case "MEDIUM":
		*t = TierMedium
	case "COMPLEX":
		*t = TierComplex
	case "REASONING":
		*t = TierReasoning
	default:
		*t = TierNone
	}
	return nil
}

// SelectTier maps a weighted score to a Tier using three ascending boundaries
// and returns the distance from the nearest boundary. Interior tiers measure
// distance to whichever of their two boundaries is closer.
func SelectTier(score float64, b TierBoundaries) (Tier, float64) {
	switch {
	case score < b.SimpleMedium:
		return TierSimple, b.SimpleMedium - score
	case score < b.MediumComplex:
		return TierMedium, minFloat(score-b.SimpleMedium, b.MediumComplex-score)
	case score < b.ComplexReasoning:
		return TierComplex, minFloat(score-b.MediumComplex, b.ComplexReasoning-score)
	default:
		return TierReasoning, score - b.ComplexReasoning
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
