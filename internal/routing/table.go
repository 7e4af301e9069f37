package routing

// Target identifies one backend as a (provider, model) pair.
// Equality is by both fields.
type Target struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

func (t Target) String() string {
	return t.Provider + ":" + t.Model
}

// TierRoute is the primary target plus ordered fallbacks for one tier.
type TierRoute struct {
	Primary  Target
	Fallback []Target
}

// Table is the static tier-to-target mapping supplied at construction time.
// Tier entries are optional; tiers without an entry route to the default.
type Table struct {
	Default         Target
	GlobalFallbacks []Target
	Tiers           map[Tier]TierRoute
}

// Route returns the configured route for a tier, if any.
func (t *Table) Route(tier Tier) (TierRoute, bool) {
	r, ok := t.Tiers[tier]
	return r, ok
}
