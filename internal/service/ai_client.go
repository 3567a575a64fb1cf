package service

import (
	"context"

	"github.com/wingerb7/findly-sub001/internal/price"
)

// AIClient is the interface for AI service providers
type AIClient interface {
	// EstimatePrice estimates a realistic price range for a query (non-streaming)
	EstimatePrice(ctx context.Context, query string) (*price.EstimateResult, error)

	// EstimatePriceStream estimates with streaming progress. The callback
	// receives thinking content and regular content as they arrive.
	EstimatePriceStream(ctx context.Context, query string, callback func(thinking, content string) error) (*price.EstimateResult, error)

	// CreateEmbeddings generates embeddings for the given texts
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the AI client is configured and ready
	IsEnabled() bool
}

// StreamChunk represents a parsed streaming chunk from any AI provider
type StreamChunk struct {
	Content         string         `json:"content"`
	ThinkingContent string         `json:"thinking_content,omitempty"`
	Role            string         `json:"role,omitempty"`
	Done            bool           `json:"done"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Ensure OpenAIClient implements both the service and resolver contracts
var (
	_ AIClient        = (*OpenAIClient)(nil)
	_ price.Estimator = (*OpenAIClient)(nil)
)
