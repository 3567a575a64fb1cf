package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wingerb7/findly-sub001/internal/model"
	"github.com/wingerb7/findly-sub001/internal/utils"
)

// Match reason labels shown to the shopper
const (
	ReasonPriceMatch      = "Past binnen prijsfilter"
	ReasonTypeMatch       = "Producttype komt overeen"
	ReasonVendorMatch     = "Merk komt overeen"
	ReasonTagMatch        = "Tags komen overeen"
	ReasonContentRelevant = "Tekstueel relevant"
	ReasonNewArrival      = "Nieuw binnen"
	ReasonOnSale          = "In de aanbieding"
	ReasonGeneralMatch    = "Algemene match"
)

// Ranker handles ranking and scoring of search results
type Ranker struct {
	weightText    float64
	weightPrice   float64
	weightRecency float64
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightText, weightPrice, weightRecency float64) *Ranker {
	return &Ranker{
		weightText:    weightText,
		weightPrice:   weightPrice,
		weightRecency: weightRecency,
	}
}

// RankResults scores and orders products. The text component comes from the
// rank the retrieval query produced (ts_rank or vector similarity).
func (r *Ranker) RankResults(products []model.Product, filters *model.SearchFilters) []model.ProductSearchResult {
	results := make([]model.ProductSearchResult, 0, len(products))

	for _, product := range products {
		result := model.ProductSearchResult{
			Product:        product,
			Score:          0,
			MatchedReasons: []string{},
		}

		textScore := r.normalizeTextScore(product.TextRank)
		priceScore := r.calculatePriceScore(product.Price, filters)
		recencyScore := r.calculateRecencyScore(product.PublishedAt)

		result.Score = (r.weightText * textScore) +
			(r.weightPrice * priceScore) +
			(r.weightRecency * recencyScore)

		result.MatchedReasons = r.generateMatchedReasons(product, filters, textScore, priceScore)

		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// normalizeTextScore clamps the retrieval rank to the 0-1 range.
// ts_rank usually stays below 1 but can exceed it for dense matches.
func (r *Ranker) normalizeTextScore(rank *float64) float64 {
	if rank == nil {
		return 0
	}
	if *rank > 1.0 {
		return 1.0
	}
	if *rank < 0 {
		return 0
	}
	return *rank
}

// calculatePriceScore scores how well the product price fits the active
// price filter. Within a range, proximity to the midpoint scores highest.
func (r *Ranker) calculatePriceScore(productPrice *float64, filters *model.SearchFilters) float64 {
	if productPrice == nil {
		return 0.5
	}

	if filters == nil || (filters.PriceMin == nil && filters.PriceMax == nil) {
		return 1.0
	}

	actualPrice := *productPrice

	if filters.PriceMin != nil && filters.PriceMax != nil {
		minPrice := *filters.PriceMin
		maxPrice := *filters.PriceMax

		if actualPrice < minPrice || actualPrice > maxPrice {
			return 0.0
		}

		midpoint := (minPrice + maxPrice) / 2
		priceRange := maxPrice - minPrice

		if priceRange == 0 {
			return 1.0
		}

		distance := math.Abs(actualPrice - midpoint)
		score := 1.0 - (distance / (priceRange / 2))
		if score < 0 {
			score = 0
		}
		return score
	}

	if filters.PriceMin != nil {
		if actualPrice < *filters.PriceMin {
			return 0.0
		}
		return 1.0
	}

	if actualPrice > *filters.PriceMax {
		return 0.0
	}
	// Closer to the ceiling is better for "tot X" queries
	score := actualPrice / *filters.PriceMax
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// calculateRecencyScore decays exponentially with product age.
// After 30 days: ~0.74, after 60 days: ~0.55, after 90 days: ~0.41.
func (r *Ranker) calculateRecencyScore(publishedAt *time.Time) float64 {
	if publishedAt == nil {
		return 0.5
	}

	daysSince := time.Since(*publishedAt).Hours() / 24
	score := math.Exp(-0.01 * daysSince)

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

// generateMatchedReasons explains why this product surfaced
func (r *Ranker) generateMatchedReasons(
	product model.Product,
	filters *model.SearchFilters,
	textScore float64,
	priceScore float64,
) []string {
	reasons := []string{}

	if filters != nil {
		if filters.ProductType != nil && product.ProductType != nil &&
			strings.Contains(strings.ToLower(*product.ProductType), strings.ToLower(*filters.ProductType)) {
			reasons = append(reasons, ReasonTypeMatch)
		}

		if filters.Vendor != nil && product.Vendor != nil &&
			strings.Contains(strings.ToLower(*product.Vendor), strings.ToLower(*filters.Vendor)) {
			reasons = append(reasons, ReasonVendorMatch)
		}

		if len(filters.Tags) > 0 && r.tagsOverlap(filters.Tags, product.Tags) {
			reasons = append(reasons, ReasonTagMatch)
		}

		if (filters.PriceMin != nil || filters.PriceMax != nil) && priceScore > 0.8 {
			reasons = append(reasons, ReasonPriceMatch)
		}
	}

	if textScore > 0.1 {
		reasons = append(reasons, ReasonContentRelevant)
	}

	if product.PublishedAt != nil {
		daysSince := time.Since(*product.PublishedAt).Hours() / 24
		if daysSince < 30 {
			reasons = append(reasons, ReasonNewArrival)
		}
	}

	if product.OnSale() {
		reasons = append(reasons, ReasonOnSale)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}

	return reasons
}

// tagsOverlap reports whether any search tag fuzzy-matches a product tag
func (r *Ranker) tagsOverlap(searchTags []string, productTags model.JSONArray) bool {
	for _, searchTag := range searchTags {
		for _, productTag := range productTags {
			if utils.FuzzyMatchTag(searchTag, productTag) {
				return true
			}
		}
	}
	return false
}
