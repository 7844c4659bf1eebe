package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/menu"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MenuReader lists catalog entries
type MenuReader interface {
	List(ctx context.Context, enabledOnly bool) ([]menu.Item, error)
}

// MenuItemResponse is one catalog entry as shown on the till
type MenuItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	Price              decimal.Decimal `json:"price"`
	Unit               string          `json:"unit,omitempty"`
	Category           string          `json:"category,omitempty"`
	DailyStockQuantity int             `json:"daily_stock_quantity"`
	Enabled            bool            `json:"enabled"`
}

// MenuHandler serves the read-only catalog
type MenuHandler struct {
	BaseHandler
	menu MenuReader
}

// NewMenuHandler creates a new MenuHandler
func NewMenuHandler(reader MenuReader) *MenuHandler {
	return &MenuHandler{menu: reader}
}

// List returns menu items in creation order. Disabled items are included
// only with ?all=true.
// GET /menu-items
func (h *MenuHandler) List(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))

	items, err := h.menu.List(c.Request.Context(), !all)
	if err != nil {
		h.HandleError(c, shared.NewDependencyError("list menu items", err))
		return
	}

	out := make([]MenuItemResponse, len(items))
	for i, it := range items {
		out[i] = MenuItemResponse{
			ID:                 it.ID,
			Name:               it.Name,
			Price:              it.Price,
			Unit:               it.Unit,
			Category:           it.Category,
			DailyStockQuantity: it.DailyStockQuantity,
			Enabled:            it.Enabled,
		}
	}
	h.SuccessList(c, out, len(out))
}
