package handler

import (
	"context"

	appsales "github.com/bizsuite/backend/internal/application/sales"
	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/gin-gonic/gin"
)

// StockLister lists the stock of a pool
type StockLister interface {
	List(ctx context.Context, pool inventory.Pool) (*appsales.StockView, error)
}

// InventoryHandler serves live stock listings
type InventoryHandler struct {
	BaseHandler
	stock StockLister
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(stock StockLister) *InventoryHandler {
	return &InventoryHandler{stock: stock}
}

// RegisterRoutes registers the inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/inventory/:pool", h.GetPool)
}

// GetPool returns every product of a pool with its on-hand quantity.
// The listing is advisory; a sale re-checks stock when it is written.
func (h *InventoryHandler) GetPool(c *gin.Context) {
	pool, err := inventory.ParsePool(c.Param("pool"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	view, err := h.stock.List(c.Request.Context(), pool)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toStockViewResponse(view))
}
