package price

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// Multipliers are the context factors applied to extracted bounds when a
// query names a premium or budget product category.
type Multipliers struct {
	Premium float64 `yaml:"premium"`
	Budget  float64 `yaml:"budget"`
}

// KeywordConfig holds the vocabulary that drives qualitative price rules,
// the fallback matcher and the category classifier. It is loaded once at
// startup and read-only afterwards.
type KeywordConfig struct {
	Multipliers         Multipliers `yaml:"multipliers"`
	BudgetTerms         []string    `yaml:"budget_terms"`
	PremiumTerms        []string    `yaml:"premium_terms"`
	SaleTerms           []string    `yaml:"sale_terms"`
	FallbackBudgetTerms []string    `yaml:"fallback_budget_terms"`
	PremiumCategories   []string    `yaml:"premium_categories"`
	BudgetCategories    []string    `yaml:"budget_categories"`
}

// LoadKeywords reads the keyword tables from path, or the embedded
// defaults when path is empty. A broken table is a startup error, not
// something to limp along with.
func LoadKeywords(path string) (*KeywordConfig, error) {
	data := defaultKeywordsYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read keywords file: %w", err)
		}
		data = b
	}

	var cfg KeywordConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *KeywordConfig) check() error {
	if c.Multipliers.Premium == 0 {
		c.Multipliers.Premium = 2.0
	}
	if c.Multipliers.Budget == 0 {
		c.Multipliers.Budget = 0.7
	}
	if c.Multipliers.Premium < 0 || c.Multipliers.Budget < 0 {
		return fmt.Errorf("keyword config: multipliers must be positive")
	}
	if len(c.BudgetTerms) == 0 || len(c.PremiumTerms) == 0 {
		return fmt.Errorf("keyword config: budget_terms and premium_terms must not be empty")
	}
	return nil
}
