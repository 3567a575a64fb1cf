package model

import "github.com/wingerb7/findly-sub001/internal/price"

// PriceIntentResult is the API-facing view of a resolved price intent
type PriceIntentResult struct {
	MinPrice      *float64          `json:"min_price"`
	MaxPrice      *float64          `json:"max_price"`
	Confidence    float64           `json:"confidence"`
	PatternType   price.PatternType `json:"pattern_type"`
	ExtractedText string            `json:"extracted_text,omitempty"`
	Reasoning     string            `json:"reasoning,omitempty"`
	Message       string            `json:"message"`
	Applied       bool              `json:"applied"`
}

// NewPriceIntentResult builds the API view of an intent. Applied tells
// the client whether the detected bounds actually filtered the results.
func NewPriceIntentResult(in price.Intent, applied bool) *PriceIntentResult {
	return &PriceIntentResult{
		MinPrice:      in.MinPrice,
		MaxPrice:      in.MaxPrice,
		Confidence:    in.Confidence,
		PatternType:   in.PatternType,
		ExtractedText: in.ExtractedText,
		Reasoning:     in.Reasoning,
		Message:       price.FormatMessage(in),
		Applied:       applied,
	}
}

// PriceIntentRequest asks for price extraction without running a search
type PriceIntentRequest struct {
	Query string `json:"query" binding:"required"`
}

// PriceIntentResponse represents the standalone extraction response.
// PriceCategory buckets the detected bound (budget, midden, premium).
type PriceIntentResponse struct {
	Intent        *PriceIntentResult `json:"intent"`
	CleanedQuery  string             `json:"cleaned_query"`
	PriceCategory string             `json:"price_category,omitempty"`
	Took          int64              `json:"took_ms"`
}
