package price

import (
	"regexp"
	"strings"
)

const fallbackConfidence = 0.8

// FallbackMatcher is the last-resort lexical budget detector, consulted
// only after every pattern rule missed. It is a flat ordered list: the
// first term that occurs in the query wins, and no context multiplier
// is applied.
type FallbackMatcher struct {
	terms    []string
	patterns []*regexp.Regexp
}

// NewFallbackMatcher compiles whole-word patterns for the fallback
// vocabulary, keeping list order.
func NewFallbackMatcher(kw *KeywordConfig) (*FallbackMatcher, error) {
	m := &FallbackMatcher{}
	for _, t := range kw.FallbackBudgetTerms {
		term := strings.ToLower(strings.TrimSpace(t))
		if term == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			return nil, err
		}
		m.terms = append(m.terms, term)
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Match scans the term list in order and returns a budget intent for the
// first hit.
func (m *FallbackMatcher) Match(query string) (Intent, bool) {
	q := strings.ToLower(query)
	for i, re := range m.patterns {
		if re.MatchString(q) {
			max := FallbackCeiling
			return Intent{
				MaxPrice:      &max,
				Confidence:    fallbackConfidence,
				PatternType:   PatternBudgetFallback,
				ExtractedText: m.terms[i],
			}, true
		}
	}
	return Intent{}, false
}
