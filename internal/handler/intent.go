package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wingerb7/findly-sub001/internal/model"
	"github.com/wingerb7/findly-sub001/internal/price"
	"github.com/wingerb7/findly-sub001/internal/service"
)

// PriceIntentHandler exposes price extraction as its own endpoint, so
// storefronts can show the detected filter before running a search.
type PriceIntentHandler struct {
	searchService *service.SearchService
}

// NewPriceIntentHandler creates a new price intent handler
func NewPriceIntentHandler(searchService *service.SearchService) *PriceIntentHandler {
	return &PriceIntentHandler{
		searchService: searchService,
	}
}

// Resolve handles POST /api/v1/price-intent
func (h *PriceIntentHandler) Resolve(c *gin.Context) {
	var req model.PriceIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	startTime := time.Now()
	result, cleanedQuery := h.searchService.ResolvePriceIntent(c.Request.Context(), req.Query)

	response := model.PriceIntentResponse{
		Intent:        result,
		CleanedQuery:  cleanedQuery,
		PriceCategory: boundCategory(result),
		Took:          time.Since(startTime).Milliseconds(),
	}

	c.JSON(http.StatusOK, response)
}

// boundCategory buckets the most informative bound of the intent.
// The upper bound wins because it is what budget perception follows.
func boundCategory(result *model.PriceIntentResult) string {
	if result == nil {
		return ""
	}
	if result.MaxPrice != nil {
		return price.PriceCategory(*result.MaxPrice)
	}
	if result.MinPrice != nil {
		return price.PriceCategory(*result.MinPrice)
	}
	return ""
}
