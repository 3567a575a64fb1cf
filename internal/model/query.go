package model

// SearchRequest represents a search query request
type SearchRequest struct {
	Query   string         `json:"query" binding:"required"`
	Filters *SearchFilters `json:"filters,omitempty"`
	Options *SearchOptions `json:"options,omitempty"`
}

// SearchFilters represents structured search filters. Explicit filters
// always win over bounds detected in the query text.
type SearchFilters struct {
	PriceMin    *float64 `json:"price_min,omitempty"`
	PriceMax    *float64 `json:"price_max,omitempty"`
	ProductType *string  `json:"product_type,omitempty"`
	Vendor      *string  `json:"vendor,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	InStock     *bool    `json:"in_stock,omitempty"`
	OnSale      *bool    `json:"on_sale,omitempty"`
}

// SearchOptions represents search options
type SearchOptions struct {
	TopK     int  `json:"top_k"`
	Offset   int  `json:"offset"`
	Semantic bool `json:"semantic"`
}

// SearchResponse represents a search result response
type SearchResponse struct {
	SearchID     string                `json:"search_id"`
	Results      []ProductSearchResult `json:"results"`
	Total        int                   `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
	TotalPages   int                   `json:"total_pages"`
	HasMore      bool                  `json:"has_more"`
	PriceIntent  *PriceIntentResult    `json:"price_intent,omitempty"`
	CleanedQuery string                `json:"cleaned_query,omitempty"`
	Message      string                `json:"message,omitempty"`
	Alternatives []ProductSearchResult `json:"alternatives,omitempty"`
	Took         int64                 `json:"took_ms"` // Response time in milliseconds
}

// EmbeddingBatchRequest represents a batch embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingItem represents a single embedding with product info.
// Embedding may be omitted when Text is set; the server generates the
// missing vector.
type EmbeddingItem struct {
	ProductID int64     `json:"product_id" binding:"required"`
	Embedding []float32 `json:"embedding,omitempty"`
	Text      string    `json:"text,omitempty"`
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// FeedbackRequest represents user feedback/action
type FeedbackRequest struct {
	SearchID  string `json:"search_id" binding:"required"`
	ProductID int64  `json:"product_id" binding:"required"`
	Action    string `json:"action" binding:"required"` // click, add_to_cart, purchase, view_details
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
