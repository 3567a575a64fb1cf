package price

import "context"

// estimateConfidenceFloor is the trust gate for estimator output:
// results at or below it are discarded rather than surfaced as filters.
const estimateConfidenceFloor = 0.5

// EstimateResult is the boundary type returned by an external price
// estimation service, already schema-validated by the implementation.
type EstimateResult struct {
	MinPrice   *float64 `json:"min_price"`
	MaxPrice   *float64 `json:"max_price"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Estimator guesses price bounds for queries no lexical rule could
// interpret. Implementations apply their own timeout and return an
// error instead of blocking.
type Estimator interface {
	EstimatePrice(ctx context.Context, query string) (*EstimateResult, error)
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func(ctx context.Context, query string) (*EstimateResult, error)

// EstimatePrice calls f.
func (f EstimatorFunc) EstimatePrice(ctx context.Context, query string) (*EstimateResult, error) {
	return f(ctx, query)
}

// StoreStats summarizes the store's price distribution, used as
// grounding context for external estimation.
type StoreStats struct {
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	MedianPrice  float64 `json:"median_price"`
	BudgetPrice  float64 `json:"budget_price"`
	PremiumPrice float64 `json:"premium_price"`
}

// DefaultStoreStats are the fallbacks when the catalog is empty or the
// statistics query fails.
func DefaultStoreStats() StoreStats {
	return StoreStats{
		MinPrice:     10,
		MaxPrice:     500,
		MedianPrice:  50,
		BudgetPrice:  50,
		PremiumPrice: 150,
	}
}

// IntentFromEstimate converts an estimator response into an Intent,
// applying the shared trust gate. Errors, empty results and
// low-confidence guesses all collapse to the no-signal intent.
func IntentFromEstimate(est *EstimateResult, err error) Intent {
	if err != nil || est == nil {
		return NoIntent()
	}
	if est.Confidence <= estimateConfidenceFloor {
		return NoIntent()
	}
	if est.MinPrice == nil && est.MaxPrice == nil {
		return NoIntent()
	}
	return Normalize(Intent{
		MinPrice:    est.MinPrice,
		MaxPrice:    est.MaxPrice,
		Confidence:  clamp01(est.Confidence),
		PatternType: PatternExternalEstimate,
		Reasoning:   est.Reasoning,
	})
}
