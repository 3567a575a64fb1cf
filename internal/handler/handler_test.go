package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wingerb7/findly-sub001/internal/model"
	"github.com/wingerb7/findly-sub001/internal/price"
	"github.com/wingerb7/findly-sub001/internal/service"
)

func fptr(v float64) *float64 { return &v }

type stubRepo struct {
	mu       sync.Mutex
	products []model.Product
	total    int
	feedback []model.FeedbackRequest
	batch    []model.EmbeddingItem
}

func (s *stubRepo) SearchWithFilters(ctx context.Context, searchText string, filters *model.SearchFilters, limit, offset int) ([]model.Product, int, error) {
	return s.products, s.total, nil
}

func (s *stubRepo) VectorSearch(ctx context.Context, queryEmbedding []float32, filters *model.SearchFilters, limit int) ([]model.Product, error) {
	return s.products, nil
}

func (s *stubRepo) CheapestAvailable(ctx context.Context, filters *model.SearchFilters, limit int) ([]model.Product, error) {
	return nil, nil
}

func (s *stubRepo) GetProductByID(ctx context.Context, productID int64) (*model.Product, error) {
	for i := range s.products {
		if s.products[i].ProductID == productID {
			return &s.products[i], nil
		}
	}
	return nil, nil
}

func (s *stubRepo) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = items
	return len(items), nil
}

func (s *stubRepo) LogSearch(ctx context.Context, searchID, query, cleanedQuery string, intent *model.PriceIntentResult, resultCount int, productIDs []int64, responseTimeMs int) error {
	return nil
}

func (s *stubRepo) LogFeedback(ctx context.Context, searchID string, productID int64, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, model.FeedbackRequest{SearchID: searchID, ProductID: productID, Action: action})
	return nil
}

func newTestRouter(t *testing.T, repo *stubRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kw, err := price.LoadKeywords("")
	require.NoError(t, err)
	rules, err := price.NewRuleTable(kw)
	require.NoError(t, err)
	classifier, err := price.NewClassifier(kw)
	require.NoError(t, err)
	fallback, err := price.NewFallbackMatcher(kw)
	require.NoError(t, err)
	resolver, err := price.NewResolver(price.ResolverConfig{
		Rules:      rules,
		Classifier: classifier,
		Fallback:   fallback,
		Logger:     zaptest.NewLogger(t).Sugar(),
	})
	require.NoError(t, err)

	svc, err := service.NewSearchService(service.SearchServiceConfig{
		Repo:     repo,
		Resolver: resolver,
		Cleaner:  price.NewCleaner(rules),
		Ranker:   service.NewRanker(0.5, 0.3, 0.2),
		Logger:   zaptest.NewLogger(t).Sugar(),
	})
	require.NoError(t, err)

	searchHandler := NewSearchHandler(svc)
	intentHandler := NewPriceIntentHandler(svc)
	feedbackHandler := NewFeedbackHandler(svc)
	embeddingHandler := NewEmbeddingHandler(svc, 3)

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		v1.POST("/search", searchHandler.Search)
		v1.POST("/search/stream", searchHandler.SearchStream)
		v1.GET("/products/:id", searchHandler.GetProduct)
		v1.POST("/price-intent", intentHandler.Resolve)
		v1.POST("/feedback", feedbackHandler.Submit)
		v1.POST("/embeddings/batch", embeddingHandler.BatchUpdate)
	}
	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestSearchEndpoint(t *testing.T) {
	repo := &stubRepo{
		products: []model.Product{{ProductID: 1, Price: fptr(49.95)}},
		total:    1,
	}
	router := newTestRouter(t, repo)

	w := postJSON(router, "/api/v1/search", gin.H{
		"query":   "kleding onder 100 euro",
		"options": gin.H{"top_k": 10, "semantic": false},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SearchID)
	assert.Equal(t, 1, resp.Total)
	require.NotNil(t, resp.PriceIntent)
	assert.True(t, resp.PriceIntent.Applied)
	assert.Equal(t, "kleding", resp.CleanedQuery)
}

func TestSearchEndpointRejectsMissingQuery(t *testing.T) {
	router := newTestRouter(t, &stubRepo{})

	w := postJSON(router, "/api/v1/search", gin.H{"filters": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request")
}

func TestSearchStreamEndpoint(t *testing.T) {
	repo := &stubRepo{
		products: []model.Product{{ProductID: 1, Price: fptr(20)}},
		total:    1,
	}
	router := newTestRouter(t, repo)

	w := postJSON(router, "/api/v1/search/stream", gin.H{
		"query":   "kleding onder 100 euro",
		"options": gin.H{"semantic": false},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	assert.Contains(t, body, "event: start")
	assert.Contains(t, body, "event: parsing")
	assert.Contains(t, body, "event: intent")
	assert.Contains(t, body, "event: results")
	assert.Contains(t, body, "event: done")
}

func TestGetProductEndpoint(t *testing.T) {
	repo := &stubRepo{products: []model.Product{{ProductID: 77}}}
	router := newTestRouter(t, repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/77", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/404", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPriceIntentEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubRepo{})

	w := postJSON(router, "/api/v1/price-intent", gin.H{"query": "jas onder 30 euro"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.PriceIntentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Intent)
	assert.True(t, resp.Intent.Applied)
	assert.Equal(t, price.PatternBelow, resp.Intent.PatternType)
	require.NotNil(t, resp.Intent.MaxPrice)
	assert.InDelta(t, 30, *resp.Intent.MaxPrice, 1e-9)
	assert.Equal(t, "jas", resp.CleanedQuery)
	assert.Equal(t, "budget", resp.PriceCategory)
	assert.Contains(t, resp.Intent.Message, "tot €30.00")
}

func TestPriceIntentEndpointNoSignal(t *testing.T) {
	router := newTestRouter(t, &stubRepo{})

	w := postJSON(router, "/api/v1/price-intent", gin.H{"query": "paarse jas"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.PriceIntentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Intent)
	assert.False(t, resp.Intent.Applied)
	assert.Equal(t, price.PatternNone, resp.Intent.PatternType)
	assert.Empty(t, resp.PriceCategory)
	assert.Equal(t, "Geen prijsfilter toegepast", resp.Intent.Message)
}

func TestPriceIntentEndpointRequiresQuery(t *testing.T) {
	router := newTestRouter(t, &stubRepo{})

	w := postJSON(router, "/api/v1/price-intent", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedbackEndpoint(t *testing.T) {
	repo := &stubRepo{}
	router := newTestRouter(t, repo)

	w := postJSON(router, "/api/v1/feedback", gin.H{
		"search_id":  "11111111-2222-3333-4444-555555555555",
		"product_id": 42,
		"action":     "add_to_cart",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	require.Len(t, repo.feedback, 1)
	assert.Equal(t, int64(42), repo.feedback[0].ProductID)
	assert.Equal(t, "add_to_cart", repo.feedback[0].Action)
}

func TestFeedbackEndpointRejectsUnknownAction(t *testing.T) {
	router := newTestRouter(t, &stubRepo{})

	w := postJSON(router, "/api/v1/feedback", gin.H{
		"search_id":  "11111111-2222-3333-4444-555555555555",
		"product_id": 42,
		"action":     "hover",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid action")
}

func TestEmbeddingBatchEndpoint(t *testing.T) {
	repo := &stubRepo{}
	router := newTestRouter(t, repo)

	w := postJSON(router, "/api/v1/embeddings/batch", gin.H{
		"embeddings": []gin.H{
			{"product_id": 1, "embedding": []float32{0.1, 0.2, 0.3}},
			{"product_id": 2, "text": "wollen trui"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.EmbeddingBatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Success)
	assert.Equal(t, 0, resp.Failed)
	require.Len(t, repo.batch, 2)
}

func TestEmbeddingBatchEndpointValidatesDimension(t *testing.T) {
	router := newTestRouter(t, &stubRepo{})

	w := postJSON(router, "/api/v1/embeddings/batch", gin.H{
		"embeddings": []gin.H{
			{"product_id": 1, "embedding": []float32{0.1, 0.2}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "dimension")
}

func TestEmbeddingBatchEndpointRejectsEmpty(t *testing.T) {
	router := newTestRouter(t, &stubRepo{})

	w := postJSON(router, "/api/v1/embeddings/batch", gin.H{"embeddings": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/v1/embeddings/batch", gin.H{
		"embeddings": []gin.H{{"product_id": 5}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "needs an embedding or text")
}
