package price

// PatternType identifies the kind of price signal that produced an intent.
type PatternType string

const (
	PatternExact            PatternType = "exact"
	PatternRange            PatternType = "range"
	PatternBelow            PatternType = "below"
	PatternAbove            PatternType = "above"
	PatternApproximate      PatternType = "approximate"
	PatternBudget           PatternType = "budget"
	PatternPremium          PatternType = "premium"
	PatternSale             PatternType = "sale"
	PatternBudgetFallback   PatternType = "budget_fallback"
	PatternExternalEstimate PatternType = "external_estimate"
	PatternNone             PatternType = "none"
)

// Intent is the normalized price interpretation of a single search query.
// It is a plain value, recomputed per query and never mutated after
// construction. When both bounds are set, MinPrice <= MaxPrice.
type Intent struct {
	MinPrice      *float64    `json:"min_price"`
	MaxPrice      *float64    `json:"max_price"`
	Confidence    float64     `json:"confidence"`
	PatternType   PatternType `json:"pattern_type"`
	ExtractedText string      `json:"extracted_text,omitempty"`
	Reasoning     string      `json:"reasoning,omitempty"`
}

// NoIntent is the benign default: no price language detected.
func NoIntent() Intent {
	return Intent{PatternType: PatternNone}
}

// HasBounds reports whether at least one bound is set.
func (i Intent) HasBounds() bool {
	return i.MinPrice != nil || i.MaxPrice != nil
}
