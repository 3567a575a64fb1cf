package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wingerb7/findly-sub001/internal/cache"
	"github.com/wingerb7/findly-sub001/internal/config"
	"github.com/wingerb7/findly-sub001/internal/model"
	"github.com/wingerb7/findly-sub001/internal/price"
)

// alternativesLimit caps the cheapest-alternatives suggestions on a
// zero-result search.
const alternativesLimit = 5

// Messages shown to the shopper when a search comes up empty
const (
	msgNoResults             = "Geen producten gevonden. Probeer een andere zoekopdracht."
	msgNoResultsInPriceRange = "Geen producten gevonden binnen dit prijsbereik. Probeer een ruimer prijsbereik."
	msgAlternativesOffered   = "Geen producten gevonden binnen dit prijsbereik. Hier zijn de goedkoopste beschikbare alternatieven."
)

// ProductRepository is the storage surface the search service depends on
type ProductRepository interface {
	SearchWithFilters(ctx context.Context, searchText string, filters *model.SearchFilters, limit, offset int) ([]model.Product, int, error)
	VectorSearch(ctx context.Context, queryEmbedding []float32, filters *model.SearchFilters, limit int) ([]model.Product, error)
	CheapestAvailable(ctx context.Context, filters *model.SearchFilters, limit int) ([]model.Product, error)
	GetProductByID(ctx context.Context, productID int64) (*model.Product, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
	LogSearch(ctx context.Context, searchID, query, cleanedQuery string, intent *model.PriceIntentResult, resultCount int, productIDs []int64, responseTimeMs int) error
	LogFeedback(ctx context.Context, searchID string, productID int64, action string) error
}

// SearchServiceConfig wires the search service's collaborators
type SearchServiceConfig struct {
	Repo     ProductRepository
	Resolver *price.Resolver
	Cleaner  *price.Cleaner
	Ranker   *Ranker

	// AI is optional; nil disables semantic search and streaming estimation.
	AI AIClient

	// Cache is optional; nil disables response caching.
	Cache *cache.Cache

	Search *config.SearchConfig
	Logger *zap.SugaredLogger
}

// SearchService handles search business logic
type SearchService struct {
	repo     ProductRepository
	resolver *price.Resolver
	cleaner  *price.Cleaner
	ranker   *Ranker
	ai       AIClient
	cache    *cache.Cache
	logger   *zap.SugaredLogger

	defaultLimit int
	maxLimit     int
}

// NewSearchService validates the wiring and builds a search service
func NewSearchService(cfg SearchServiceConfig) (*SearchService, error) {
	if cfg.Repo == nil || cfg.Resolver == nil || cfg.Cleaner == nil || cfg.Ranker == nil {
		return nil, fmt.Errorf("search service requires repository, resolver, cleaner and ranker")
	}

	s := &SearchService{
		repo:         cfg.Repo,
		resolver:     cfg.Resolver,
		cleaner:      cfg.Cleaner,
		ranker:       cfg.Ranker,
		ai:           cfg.AI,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		defaultLimit: 20,
		maxLimit:     100,
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if cfg.Search != nil {
		if cfg.Search.DefaultLimit > 0 {
			s.defaultLimit = cfg.Search.DefaultLimit
		}
		if cfg.Search.MaxLimit > 0 {
			s.maxLimit = cfg.Search.MaxLimit
		}
	}
	return s, nil
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// Search performs a complete search: price intent resolution, query
// cleaning, filtered retrieval, ranking and analytics logging.
func (s *SearchService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	startTime := time.Now()
	options := s.normalizeOptions(req.Options)

	var cacheKey string
	if s.cache != nil {
		cacheKey = cache.SearchKey(req.Query, req.Filters, options)
		var cached model.SearchResponse
		if s.cache.Get(ctx, cacheKey, &cached) {
			return &cached, nil
		}
	}

	intent := s.resolver.Resolve(ctx, req.Query)
	response, err := s.completeSearch(ctx, req, options, intent, startTime)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, response)
	}
	return response, nil
}

// SearchStream performs a search while streaming progress events. When
// resolution reaches the estimation tier, the model's thinking and
// content chunks are forwarded as they arrive.
func (s *SearchService) SearchStream(ctx context.Context, req *model.SearchRequest, callback SearchEventCallback) (*model.SearchResponse, error) {
	startTime := time.Now()
	options := s.normalizeOptions(req.Options)

	if err := callback("parsing", map[string]any{
		"status": "Zoekopdracht analyseren...",
	}); err != nil {
		return nil, err
	}

	var streamEstimator price.Estimator
	if s.ai != nil && s.ai.IsEnabled() {
		streamEstimator = price.EstimatorFunc(func(ctx context.Context, query string) (*price.EstimateResult, error) {
			return s.ai.EstimatePriceStream(ctx, query, func(thinking, content string) error {
				if thinking != "" {
					return callback("thinking", map[string]any{"content": thinking})
				}
				if content != "" {
					return callback("content", map[string]any{"content": content})
				}
				return nil
			})
		})
	}

	intent := s.resolver.ResolveWithEstimator(ctx, req.Query, streamEstimator)

	if err := callback("searching", map[string]any{
		"status": "Producten zoeken...",
	}); err != nil {
		return nil, err
	}

	response, err := s.completeSearch(ctx, req, options, intent, startTime)
	if err != nil {
		return nil, err
	}

	if err := callback("intent", response.PriceIntent); err != nil {
		return nil, err
	}
	return response, nil
}

// completeSearch runs the shared part of the pipeline after intent
// resolution: filter merging, retrieval, ranking, alternatives,
// pagination and the async analytics insert.
func (s *SearchService) completeSearch(
	ctx context.Context,
	req *model.SearchRequest,
	options *model.SearchOptions,
	intent price.Intent,
	startTime time.Time,
) (*model.SearchResponse, error) {
	applied := s.intentApplies(intent, req.Filters)
	intentResult := model.NewPriceIntentResult(intent, applied)
	cleanedQuery := s.cleaner.Clean(req.Query)
	filters := s.mergeFilters(req.Filters, intent, applied)

	products, total, err := s.retrieve(ctx, cleanedQuery, filters, options)
	if err != nil {
		return nil, err
	}

	results := s.ranker.RankResults(products, filters)

	message := ""
	var alternatives []model.ProductSearchResult
	if len(results) == 0 {
		message = msgNoResults
		if filters.PriceMin != nil || filters.PriceMax != nil {
			message = msgNoResultsInPriceRange
			alternatives = s.cheapestAlternatives(ctx, filters)
			if len(alternatives) > 0 {
				message = msgAlternativesOffered
			}
		}
	}

	searchID := uuid.New().String()
	took := time.Since(startTime).Milliseconds()

	// Analytics must not block the response
	go func() {
		productIDs := make([]int64, len(results))
		for i, r := range results {
			productIDs[i] = r.ProductID
		}
		if err := s.repo.LogSearch(context.Background(), searchID, req.Query, cleanedQuery, intentResult, total, productIDs, int(took)); err != nil {
			s.logger.Warnf("failed to log search: %v", err)
		}
	}()

	pageSize := options.TopK
	page := options.Offset/pageSize + 1
	totalPages := (total + pageSize - 1) / pageSize

	return &model.SearchResponse{
		SearchID:     searchID,
		Results:      results,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		HasMore:      options.Offset+len(results) < total,
		PriceIntent:  intentResult,
		CleanedQuery: cleanedQuery,
		Message:      message,
		Alternatives: alternatives,
		Took:         took,
	}, nil
}

// retrieve fetches candidate products, preferring semantic retrieval
// when requested and available, with full-text search as the fallback.
func (s *SearchService) retrieve(
	ctx context.Context,
	cleanedQuery string,
	filters *model.SearchFilters,
	options *model.SearchOptions,
) ([]model.Product, int, error) {
	if options.Semantic && s.ai != nil && s.ai.IsEnabled() {
		embeddings, err := s.ai.CreateEmbeddings(ctx, []string{cleanedQuery})
		if err != nil || len(embeddings) == 0 || len(embeddings[0]) == 0 {
			s.logger.Warnf("⚠️ semantic search unavailable, falling back to full-text: %v", err)
		} else {
			products, err := s.repo.VectorSearch(ctx, embeddings[0], filters, options.TopK)
			if err != nil {
				return nil, 0, err
			}
			return products, len(products), nil
		}
	}

	return s.repo.SearchWithFilters(ctx, cleanedQuery, filters, options.TopK, options.Offset)
}

// intentApplies decides whether the resolved intent becomes a filter.
// Explicit price bounds from the client always win, and intents that
// fail range validation are reported but never applied.
func (s *SearchService) intentApplies(intent price.Intent, explicit *model.SearchFilters) bool {
	if !intent.HasBounds() {
		return false
	}
	if !price.ValidateRange(intent.MinPrice, intent.MaxPrice) {
		return false
	}
	if explicit != nil && (explicit.PriceMin != nil || explicit.PriceMax != nil) {
		return false
	}
	return true
}

// mergeFilters combines explicit filters with the resolved price intent
func (s *SearchService) mergeFilters(explicit *model.SearchFilters, intent price.Intent, applied bool) *model.SearchFilters {
	merged := &model.SearchFilters{}
	if explicit != nil {
		*merged = *explicit
	}
	if applied {
		merged.PriceMin = intent.MinPrice
		merged.PriceMax = intent.MaxPrice
	}
	return merged
}

// normalizeOptions applies defaults and clamps limits
func (s *SearchService) normalizeOptions(opts *model.SearchOptions) *model.SearchOptions {
	normalized := &model.SearchOptions{
		TopK:     s.defaultLimit,
		Offset:   0,
		Semantic: true,
	}
	if opts == nil {
		return normalized
	}
	if opts.TopK > 0 {
		normalized.TopK = opts.TopK
	}
	if normalized.TopK > s.maxLimit {
		normalized.TopK = s.maxLimit
	}
	if opts.Offset > 0 {
		normalized.Offset = opts.Offset
	}
	normalized.Semantic = opts.Semantic
	return normalized
}

// cheapestAlternatives suggests in-stock products below the failed
// price filter, cheapest first.
func (s *SearchService) cheapestAlternatives(ctx context.Context, filters *model.SearchFilters) []model.ProductSearchResult {
	products, err := s.repo.CheapestAvailable(ctx, filters, alternativesLimit)
	if err != nil {
		s.logger.Warnf("failed to load alternatives: %v", err)
		return nil
	}

	results := make([]model.ProductSearchResult, 0, len(products))
	for _, p := range products {
		results = append(results, model.ProductSearchResult{
			Product:        p,
			Score:          0,
			MatchedReasons: []string{ReasonGeneralMatch},
		})
	}
	return results
}

// ResolvePriceIntent exposes the resolver for the price-intent endpoint
func (s *SearchService) ResolvePriceIntent(ctx context.Context, query string) (*model.PriceIntentResult, string) {
	intent := s.resolver.Resolve(ctx, query)
	applied := intent.HasBounds() && price.ValidateRange(intent.MinPrice, intent.MaxPrice)
	return model.NewPriceIntentResult(intent, applied), s.cleaner.Clean(query)
}

// GetProduct retrieves a single product by its Shopify product id
func (s *SearchService) GetProduct(ctx context.Context, productID int64) (*model.Product, error) {
	return s.repo.GetProductByID(ctx, productID)
}

// UpdateEmbeddings stores precomputed embeddings and generates missing
// ones from item text when the AI client is available. Search caches
// are invalidated afterwards because embeddings change result order.
func (s *SearchService) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	missing := make([]int, 0)
	texts := make([]string, 0)
	for i, item := range items {
		if len(item.Embedding) == 0 && item.Text != "" {
			missing = append(missing, i)
			texts = append(texts, item.Text)
		}
	}

	if len(texts) > 0 && s.ai != nil && s.ai.IsEnabled() {
		embeddings, err := s.ai.CreateEmbeddings(ctx, texts)
		if err != nil {
			s.logger.Warnf("failed to generate embeddings for %d items: %v", len(texts), err)
		} else {
			for j, idx := range missing {
				if j < len(embeddings) {
					items[idx].Embedding = embeddings[j]
				}
			}
		}
	}

	success, errs := s.repo.BatchUpdateEmbeddings(ctx, items)

	if success > 0 && s.cache != nil {
		if err := s.cache.InvalidateSearches(ctx); err != nil {
			s.logger.Warnf("failed to invalidate search cache: %v", err)
		}
	}

	return success, errs
}

// LogFeedback records a shopper action on a search result
func (s *SearchService) LogFeedback(ctx context.Context, searchID string, productID int64, action string) error {
	return s.repo.LogFeedback(ctx, searchID, productID, action)
}
