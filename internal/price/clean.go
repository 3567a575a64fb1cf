package price

import (
	"regexp"
	"strings"
)

var collapseSpaceRe = regexp.MustCompile(`\s+`)

// Cleaner strips recognized price phrases from a query so the remainder
// can feed text and semantic search without amounts polluting the terms.
type Cleaner struct {
	patterns []*regexp.Regexp
}

// NewCleaner builds a cleaner over every pattern in the rule table, not
// just the rule that won extraction. Keyword terms are stripped before
// numeric patterns: a qualifier sitting between an amount and its
// currency word must go first so the numeric pass sees the amount, and
// one pass then reaches the fixed point.
func NewCleaner(table *RuleTable) *Cleaner {
	rules := table.Rules()
	ps := make([]*regexp.Regexp, 0, len(rules))
	for _, r := range rules {
		if keywordRule(r.Type) {
			ps = append(ps, r.Pattern)
		}
	}
	for _, r := range rules {
		if !keywordRule(r.Type) {
			ps = append(ps, r.Pattern)
		}
	}
	return &Cleaner{patterns: ps}
}

func keywordRule(t PatternType) bool {
	switch t {
	case PatternBudget, PatternPremium, PatternSale:
		return true
	}
	return false
}

// Clean removes all price phrases from the original query, preserving
// its casing. When stripping would leave nothing the original query is
// returned unchanged, so the search term is never empty. Cleaning an
// already cleaned query is a no-op.
func (c *Cleaner) Clean(original string) string {
	if strings.TrimSpace(original) == "" {
		return original
	}
	cleaned := original
	for _, p := range c.patterns {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(collapseSpaceRe.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return original
	}
	return cleaned
}
