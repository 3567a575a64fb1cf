package utils

import (
	"fmt"
	"strings"
)

// tagAliases maps canonical product tags to the storefront variants that
// shoppers and the Shopify feed actually use. Keys and values are
// lowercase.
var tagAliases = map[string][]string{
	"jas":         {"jas", "jassen", "jacket", "coat", "winterjas"},
	"trui":        {"trui", "truien", "sweater", "pullover", "hoodie"},
	"broek":       {"broek", "broeken", "pants", "jeans"},
	"jurk":        {"jurk", "jurken", "dress"},
	"shirt":       {"shirt", "shirts", "t-shirt", "tshirt", "tee"},
	"schoenen":    {"schoenen", "schoen", "shoes", "sneakers", "laarzen", "boots"},
	"tas":         {"tas", "tassen", "bag", "handtas", "rugzak"},
	"sokken":      {"sokken", "sok", "socks"},
	"accessoires": {"accessoires", "accessoire", "accessories", "sjaal", "muts"},
	"sieraden":    {"sieraden", "jewelry", "ketting", "armband", "oorbellen"},
}

// NormalizeTag maps a tag variant to its canonical form. Unknown tags
// come back lowercased and trimmed.
func NormalizeTag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if _, ok := tagAliases[t]; ok {
		return t
	}
	for canonical, variants := range tagAliases {
		for _, v := range variants {
			if v == t {
				return canonical
			}
		}
	}
	return t
}

// ExpandTag returns all known variants for a tag, canonical included.
// Unknown tags expand to themselves.
func ExpandTag(tag string) []string {
	canonical := NormalizeTag(tag)
	if variants, ok := tagAliases[canonical]; ok {
		return variants
	}
	return []string{canonical}
}

// FuzzyMatchTag reports whether the search term matches a product tag,
// via exact, substring or alias comparison.
func FuzzyMatchTag(searchTerm, tag string) bool {
	search := strings.ToLower(strings.TrimSpace(searchTerm))
	candidate := strings.ToLower(strings.TrimSpace(tag))

	if search == candidate {
		return true
	}
	if strings.Contains(candidate, search) {
		return true
	}
	for _, v := range ExpandTag(search) {
		if strings.Contains(candidate, v) {
			return true
		}
	}
	return false
}

// BuildTagConditions builds JSONB conditions for fuzzy tag matching.
// Returns one EXISTS clause per search term, the bind parameters and
// the next free parameter index.
func BuildTagConditions(searchTerms []string, paramIndex int) ([]string, []interface{}, int) {
	if len(searchTerms) == 0 {
		return nil, nil, paramIndex
	}

	var conditions []string
	var params []interface{}

	for _, term := range searchTerms {
		variants := ExpandTag(term)

		var orConditions []string
		for _, v := range variants {
			orConditions = append(orConditions, fmt.Sprintf("elem::text ILIKE $%d", paramIndex))
			params = append(params, "%"+v+"%")
			paramIndex++
		}

		condition := "EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) elem WHERE " +
			strings.Join(orConditions, " OR ") + ")"
		conditions = append(conditions, condition)
	}

	return conditions, params, paramIndex
}
