package handler

import (
	"context"

	appsales "github.com/bizsuite/backend/internal/application/sales"
	"github.com/gin-gonic/gin"
)

// SummaryProvider computes dashboard totals
type SummaryProvider interface {
	Summary(ctx context.Context) (*appsales.Summary, error)
}

// SummaryHandler serves the dashboard summary
type SummaryHandler struct {
	BaseHandler
	summary SummaryProvider
}

// NewSummaryHandler creates a new SummaryHandler
func NewSummaryHandler(summary SummaryProvider) *SummaryHandler {
	return &SummaryHandler{summary: summary}
}

// RegisterRoutes registers the summary route
func (h *SummaryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/summary", h.Get)
}

// Get returns due, overdue and paid totals and the stock of each pool
func (h *SummaryHandler) Get(c *gin.Context) {
	summary, err := h.summary.Summary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSummaryResponse(summary))
}
