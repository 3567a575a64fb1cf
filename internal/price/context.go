package price

import (
	"regexp"
	"strings"
)

// Classifier maps product-category vocabulary to a price multiplier, so
// qualitative words scale with what is being bought. Premium categories
// are checked first and the first hit short-circuits.
type Classifier struct {
	premiumRe   *regexp.Regexp
	budgetRe    *regexp.Regexp
	premiumMult float64
	budgetMult  float64
}

// NewClassifier compiles the category vocabularies. Empty lists are
// allowed; the classifier is then neutral for that side.
func NewClassifier(kw *KeywordConfig) (*Classifier, error) {
	c := &Classifier{
		premiumMult: kw.Multipliers.Premium,
		budgetMult:  kw.Multipliers.Budget,
	}
	var err error
	if len(kw.PremiumCategories) > 0 {
		if c.premiumRe, err = compileTermSet(kw.PremiumCategories); err != nil {
			return nil, err
		}
	}
	if len(kw.BudgetCategories) > 0 {
		if c.budgetRe, err = compileTermSet(kw.BudgetCategories); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Classify returns the context multiplier for query, 1.0 when no
// category word is present.
func (c *Classifier) Classify(query string) float64 {
	q := strings.ToLower(query)
	if c.premiumRe != nil && c.premiumRe.MatchString(q) {
		return c.premiumMult
	}
	if c.budgetRe != nil && c.budgetRe.MatchString(q) {
		return c.budgetMult
	}
	return 1.0
}
