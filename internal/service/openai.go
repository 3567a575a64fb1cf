package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/wingerb7/findly-sub001/internal/config"
	"github.com/wingerb7/findly-sub001/internal/price"
	"github.com/wingerb7/findly-sub001/internal/utils"
)

// StatsSource provides store-wide price statistics used to ground the
// estimation prompt in the actual catalog.
type StatsSource interface {
	PriceStatistics(ctx context.Context) (price.StoreStats, error)
}

// OpenAIClient handles OpenAI-compatible API interactions
type OpenAIClient struct {
	config      *config.OpenAIConfig
	httpClient  *http.Client
	chunkParser StreamChunkParser
	logger      *zap.SugaredLogger

	estimateTimeout   time.Duration
	estimateMaxTokens int

	statsMu     sync.Mutex
	statsSource StatsSource
	stats       price.StoreStats
	statsExpiry time.Time
	statsTTL    time.Duration
}

// NewOpenAIClient creates a new OpenAI-compatible client with auto-detection of provider
func NewOpenAIClient(cfg *config.OpenAIConfig, priceCfg *config.PriceConfig, logger *zap.SugaredLogger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	parser, provider := chunkParserFor(cfg.APIBase)
	logger.Infof("🔧 Using %s stream format for: %s", provider, cfg.APIBase)

	client := &OpenAIClient{
		config:      cfg,
		chunkParser: parser,
		logger:      logger,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		estimateTimeout:   3 * time.Second,
		estimateMaxTokens: 100,
		statsTTL:          5 * time.Minute,
	}

	if priceCfg != nil {
		if priceCfg.EstimateTimeout > 0 {
			client.estimateTimeout = time.Duration(priceCfg.EstimateTimeout) * time.Second
		}
		if priceCfg.EstimateMaxTokens > 0 {
			client.estimateMaxTokens = priceCfg.EstimateMaxTokens
		}
		if priceCfg.StatsTTL > 0 {
			client.statsTTL = time.Duration(priceCfg.StatsTTL) * time.Second
		}
	}

	return client
}

// SetStatsSource wires a repository that can answer catalog price statistics.
// Without a source the estimation prompt falls back to default store context.
func (c *OpenAIClient) SetStatsSource(src StatsSource) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.statsSource = src
	c.statsExpiry = time.Time{}
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"` // For DeepSeek/NVIDIA API
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ExtraBody      map[string]any  `json:"extra_body,omitempty"` // For DeepSeek: {"chat_template_kwargs": {"thinking":true}}
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// StreamCallback is called for each chunk in streaming mode
type StreamCallback func(chunk *StreamChunk) error

// EmbeddingRequest represents an embedding request
type EmbeddingRequest struct {
	Model          string         `json:"model"`
	Input          []string       `json:"input"`
	Dimensions     int            `json:"dimensions,omitempty"`
	EncodingFormat string         `json:"encoding_format,omitempty"` // For NVIDIA API: "float"
	ExtraBody      map[string]any `json:"extra_body,omitempty"`      // For NVIDIA API: {"truncate": "NONE"}
}

// EmbeddingResponse represents the embedding API response
type EmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// applyDefaults fills in configured model and sampling parameters when the
// caller left them unset.
func (c *OpenAIClient) applyDefaults(req *ChatCompletionRequest) {
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil && c.config.ChatExtraBody != "" {
		var extraBody map[string]any
		if err := json.Unmarshal([]byte(c.config.ChatExtraBody), &extraBody); err == nil {
			req.ExtraBody = extraBody
		} else {
			c.logger.Warnf("failed to parse OPENAI_CHAT_EXTRA_BODY: %v", err)
		}
	}
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	c.applyDefaults(&req)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.config.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// ChatCompletionStream performs a streaming chat completion request
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	if !c.config.Enabled {
		return fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	c.applyDefaults(&req)
	req.Stream = true

	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.config.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		// SSE format: "data: {...}"
		if bytes.HasPrefix(line, []byte("data: ")) {
			data := bytes.TrimPrefix(line, []byte("data: "))

			if bytes.Equal(data, []byte("[DONE]")) {
				break
			}

			chunk, err := c.chunkParser.ParseChunk(data)
			if err != nil {
				c.logger.Warnf("failed to parse stream chunk: %v", err)
				continue
			}

			if err := callback(chunk); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
	}

	return nil
}

// CreateEmbeddings creates embeddings for the given texts
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	batchSize := c.config.BatchSize

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		embeddings, err := c.createEmbeddingBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for batch %d: %w", i/batchSize, err)
		}

		allEmbeddings = append(allEmbeddings, embeddings...)

		// Rate limiting: small delay between batches
		if end < len(texts) {
			time.Sleep(100 * time.Millisecond)
		}
	}

	return allEmbeddings, nil
}

// createEmbeddingBatch creates embeddings for a single batch
func (c *OpenAIClient) createEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := EmbeddingRequest{
		Model:          c.config.EmbeddingModel,
		Input:          texts,
		Dimensions:     c.config.EmbeddingDimensions,
		EncodingFormat: "float", // For NVIDIA API compatibility
	}

	if c.config.EmbeddingExtraBody != "" {
		var extraBody map[string]any
		if err := json.Unmarshal([]byte(c.config.EmbeddingExtraBody), &extraBody); err == nil {
			req.ExtraBody = extraBody
		} else {
			c.logger.Warnf("failed to parse OPENAI_EMBEDDING_EXTRA_BODY: %v", err)
		}
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/embeddings", c.config.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result EmbeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	// Restore original order; the API may return items out of order
	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}

	c.logger.Debugf("created %d embeddings using model %s (tokens: %d)", len(embeddings), result.Model, result.Usage.TotalTokens)

	return embeddings, nil
}

const estimateSystemPrompt = `You are a pricing analyst for a Dutch webshop. Estimate a realistic price range in euro for what the shopper is looking for.

Rules:
- Respond ONLY with valid JSON: {"min_price": number or null, "max_price": number or null, "confidence": 0.0-1.0, "reasoning": "short explanation"}
- Use null for a bound you cannot estimate
- Confidence reflects how sure you are about the range
- Stay within the store price context you are given
- Keep reasoning under 20 words

Examples:
Query: "cadeau voor moeder"
Response: {"min_price": 15, "max_price": 60, "confidence": 0.6, "reasoning": "gifts cluster in the mid range"}

Query: "iets warms voor de winter"
Response: {"min_price": 25, "max_price": 120, "confidence": 0.7, "reasoning": "winter wear spans sweaters to coats"}

Query: "xkcd qwerty"
Response: {"min_price": null, "max_price": null, "confidence": 0.1, "reasoning": "query is not interpretable"}`

// estimateSchemaJSON is the contract every estimation response must satisfy
// before it is trusted.
const estimateSchemaJSON = `{
	"type": "object",
	"properties": {
		"min_price": {"type": ["number", "null"], "minimum": 0},
		"max_price": {"type": ["number", "null"], "minimum": 0},
		"confidence": {"type": "number"},
		"reasoning": {"type": "string"}
	},
	"required": ["min_price", "max_price", "confidence", "reasoning"],
	"additionalProperties": false
}`

var estimateSchema = gojsonschema.NewStringLoader(estimateSchemaJSON)

// EstimatePrice asks the model for a price range estimate for the query
func (c *OpenAIClient) EstimatePrice(ctx context.Context, query string) (*price.EstimateResult, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled")
	}

	ctx, cancel := context.WithTimeout(ctx, c.estimateTimeout)
	defer cancel()

	req := ChatCompletionRequest{
		Model:          c.config.ChatModel,
		Messages:       c.estimateMessages(ctx, query),
		Temperature:    0.1,
		MaxTokens:      c.estimateMaxTokens,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return c.parseEstimate(resp.Choices[0].Message.Content)
}

// EstimatePriceStream estimates with streaming progress. Thinking content and
// regular content are forwarded to the callback as they arrive; the final
// result is parsed from the accumulated content.
func (c *OpenAIClient) EstimatePriceStream(ctx context.Context, query string, callback func(thinking, content string) error) (*price.EstimateResult, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled")
	}

	ctx, cancel := context.WithTimeout(ctx, c.estimateTimeout)
	defer cancel()

	req := ChatCompletionRequest{
		Model:          c.config.ChatModel,
		Messages:       c.estimateMessages(ctx, query),
		Temperature:    0.1,
		MaxTokens:      c.estimateMaxTokens,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	var fullContent strings.Builder
	var fullThinking strings.Builder

	err := c.ChatCompletionStream(ctx, req, func(chunk *StreamChunk) error {
		if chunk.ThinkingContent != "" {
			fullThinking.WriteString(chunk.ThinkingContent)
			if err := callback(chunk.ThinkingContent, ""); err != nil {
				return err
			}
		}
		if chunk.Content != "" {
			fullContent.WriteString(chunk.Content)
			if err := callback("", chunk.Content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("streaming error: %w", err)
	}

	c.logger.Debugf("estimation stream finished: %d thinking chars, %d content chars", fullThinking.Len(), fullContent.Len())

	return c.parseEstimate(fullContent.String())
}

// estimateMessages builds the estimation conversation, grounding the model in
// current store price statistics.
func (c *OpenAIClient) estimateMessages(ctx context.Context, query string) []ChatMessage {
	stats := c.storeStats(ctx)

	runes := []rune(query)
	if len(runes) > 200 {
		runes = runes[:200]
	}

	userPrompt := fmt.Sprintf(
		"Store context: prices range €%.2f-€%.2f, median €%.2f, budget tier up to €%.2f, premium tier from €%.2f.\nQuery: %q",
		stats.MinPrice, stats.MaxPrice, stats.MedianPrice, stats.BudgetPrice, stats.PremiumPrice, string(runes))

	return []ChatMessage{
		{Role: "system", Content: estimateSystemPrompt},
		{Role: "user", Content: userPrompt},
	}
}

// storeStats returns cached catalog statistics, refreshing from the stats
// source when the cache has expired.
func (c *OpenAIClient) storeStats(ctx context.Context) price.StoreStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	if time.Now().Before(c.statsExpiry) {
		return c.stats
	}

	if c.statsSource == nil {
		c.stats = price.DefaultStoreStats()
		c.statsExpiry = time.Now().Add(c.statsTTL)
		return c.stats
	}

	stats, err := c.statsSource.PriceStatistics(ctx)
	if err != nil {
		c.logger.Warnf("⚠️ price statistics unavailable, using defaults: %v", err)
		stats = price.DefaultStoreStats()
	}

	c.stats = stats
	c.statsExpiry = time.Now().Add(c.statsTTL)
	return c.stats
}

// parseEstimate extracts and validates the JSON estimation from model output.
// Responses that do not satisfy the schema are rejected rather than repaired.
func (c *OpenAIClient) parseEstimate(content string) (*price.EstimateResult, error) {
	doc, err := utils.ExtractJSON(content)
	if err != nil {
		return nil, fmt.Errorf("estimation response is not JSON: %w", err)
	}

	validation, err := gojsonschema.Validate(estimateSchema, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to validate estimation: %w", err)
	}
	if !validation.Valid() {
		issues := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("estimation failed schema validation: %s", strings.Join(issues, "; "))
	}

	var result price.EstimateResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal estimation: %w", err)
	}

	return &result, nil
}
