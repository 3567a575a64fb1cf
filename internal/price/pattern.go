package price

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fixed bounds for qualitative rules, in euro.
const (
	BudgetCeiling   = 75.0
	PremiumFloor    = 200.0
	SaleCeiling     = 100.0
	FallbackCeiling = 75.0
)

// Confidence boosts applied to the winning candidate before clamping.
const (
	exactBoost = 1.2
	rangeBoost = 1.1
)

// Shared pattern fragments. The currency token is optional on keyword
// rules but required for bare numbers, so sizes and quantities are not
// mistaken for prices.
const (
	num      = `(\d+(?:[.,]\d+)?)`
	currency = `(?:euros?\b|eur\b|€)`
	optCur   = `(?:\s*(?:euros?\b|eur\b|€))?`
)

var (
	rangeBetweenRe = regexp.MustCompile(`(?i)\b(?:tussen|between)\s+` + num + `\s+(?:en|and)\s+` + num + optCur)
	rangeToRe      = regexp.MustCompile(`(?i)\b` + num + `\s+(?:tot|to)\s+` + num + optCur)
	rangeDashRe    = regexp.MustCompile(`(?i)\b` + num + `\s*[-–]\s*` + num + `\s*` + currency)
	belowRe        = regexp.MustCompile(`(?i)\b(?:onder|under|below|less\s+than|minder\s+dan|max|maximaal|tot)\s+(?:€\s*)?` + num + optCur)
	aboveRe        = regexp.MustCompile(`(?i)\b(?:boven|above|over|more\s+than|meer\s+dan|vanaf|minimaal)\s+(?:€\s*)?` + num + optCur)
	approxRe       = regexp.MustCompile(`(?i)\b(?:rond|ongeveer|circa|around|about|approximately)\s+(?:€\s*)?` + num + optCur)
	exactSuffixRe  = regexp.MustCompile(`(?i)\b` + num + `\s*` + currency)
	exactPrefixRe  = regexp.MustCompile(`(?i)(?:€|\beuro\b)\s*` + num)
)

// Extractor produces a single price bound from a regex match. The slice
// is the full submatch set, index 0 being the whole match. A nil
// Extractor on a rule means the rule does not set that bound.
type Extractor func(groups []string) (float64, error)

// Constant returns v regardless of the match.
func Constant(v float64) Extractor {
	return func([]string) (float64, error) { return v, nil }
}

// Group parses capture group n as a price.
func Group(n int) Extractor {
	return func(groups []string) (float64, error) {
		if n >= len(groups) {
			return 0, fmt.Errorf("capture group %d out of range", n)
		}
		return ParsePrice(groups[n])
	}
}

// GroupScaled parses capture group n and multiplies it by factor.
func GroupScaled(n int, factor float64) Extractor {
	return func(groups []string) (float64, error) {
		v, err := Group(n)(groups)
		if err != nil {
			return 0, err
		}
		return v * factor, nil
	}
}

// ParsePrice converts a matched amount, accepting comma and dot decimals.
func ParsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return v, nil
}

// Rule couples a text pattern with bound extractors. Rules are data:
// adding a phrasing means adding an entry, not editing the resolver.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Min     Extractor
	Max     Extractor
	Type    PatternType

	// Priority is the registration index. When two candidates tie on
	// confidence the lower priority wins, so reordering the scan does
	// not change results.
	Priority int
}

// RuleTable is the read-only rule catalog, built once at startup.
type RuleTable struct {
	rules []Rule
}

// Rules returns the catalog in registration order.
func (t *RuleTable) Rules() []Rule {
	return t.rules
}

// NewRuleTable assembles the full catalog: numeric patterns first, then
// the qualitative rules compiled from the keyword vocabulary.
func NewRuleTable(kw *KeywordConfig) (*RuleTable, error) {
	budgetRe, err := compileTermSet(kw.BudgetTerms)
	if err != nil {
		return nil, fmt.Errorf("compile budget terms: %w", err)
	}
	premiumRe, err := compileTermSet(kw.PremiumTerms)
	if err != nil {
		return nil, fmt.Errorf("compile premium terms: %w", err)
	}
	saleRe, err := compileTermSet(kw.SaleTerms)
	if err != nil {
		return nil, fmt.Errorf("compile sale terms: %w", err)
	}

	rules := []Rule{
		{Name: "range_between", Pattern: rangeBetweenRe, Min: Group(1), Max: Group(2), Type: PatternRange},
		{Name: "range_to", Pattern: rangeToRe, Min: Group(1), Max: Group(2), Type: PatternRange},
		{Name: "range_dash", Pattern: rangeDashRe, Min: Group(1), Max: Group(2), Type: PatternRange},
		{Name: "below", Pattern: belowRe, Max: Group(1), Type: PatternBelow},
		{Name: "above", Pattern: aboveRe, Min: Group(1), Type: PatternAbove},
		{Name: "approximate", Pattern: approxRe, Min: GroupScaled(1, 0.8), Max: GroupScaled(1, 1.2), Type: PatternApproximate},
		{Name: "exact_suffix", Pattern: exactSuffixRe, Min: GroupScaled(1, 0.9), Max: GroupScaled(1, 1.1), Type: PatternExact},
		{Name: "exact_prefix", Pattern: exactPrefixRe, Min: GroupScaled(1, 0.9), Max: GroupScaled(1, 1.1), Type: PatternExact},
		{Name: "budget_terms", Pattern: budgetRe, Max: Constant(BudgetCeiling), Type: PatternBudget},
		{Name: "premium_terms", Pattern: premiumRe, Min: Constant(PremiumFloor), Type: PatternPremium},
		{Name: "sale_terms", Pattern: saleRe, Max: Constant(SaleCeiling), Type: PatternSale},
	}
	for i := range rules {
		rules[i].Priority = i
	}
	return &RuleTable{rules: rules}, nil
}

// compileTermSet builds a case-insensitive whole-word alternation over
// the given vocabulary.
func compileTermSet(terms []string) (*regexp.Regexp, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty term list")
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(t)))
	}
	return regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, `|`) + `)\b`)
}
