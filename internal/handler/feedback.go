package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wingerb7/findly-sub001/internal/model"
	"github.com/wingerb7/findly-sub001/internal/service"
)

// validFeedbackActions are the shopper actions analytics accepts
var validFeedbackActions = map[string]bool{
	"click":        true,
	"add_to_cart":  true,
	"purchase":     true,
	"view_details": true,
}

// FeedbackHandler handles feedback-related HTTP requests
type FeedbackHandler struct {
	searchService *service.SearchService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(searchService *service.SearchService) *FeedbackHandler {
	return &FeedbackHandler{
		searchService: searchService,
	}
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if !validFeedbackActions[req.Action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: click, add_to_cart, purchase, view_details"})
		return
	}

	err := h.searchService.LogFeedback(c.Request.Context(), req.SearchID, req.ProductID, req.Action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log feedback: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}
