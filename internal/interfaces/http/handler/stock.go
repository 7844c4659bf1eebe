package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	appstock "github.com/pos/backend/internal/application/stock"
	"github.com/pos/backend/internal/domain/stock"
)

// StockViewer builds the reconciled stock view for a day
type StockViewer interface {
	GetStockView(ctx context.Context, date time.Time) (stock.View, bool, error)
}

// StockHandler serves the stock page
type StockHandler struct {
	BaseHandler
	stock StockViewer
	loc   *time.Location
	now   func() time.Time
}

// NewStockHandler creates a new StockHandler. Dates are read in loc.
func NewStockHandler(viewer StockViewer, loc *time.Location) *StockHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StockHandler{stock: viewer, loc: loc, now: time.Now}
}

// Get returns the stock view for ?date=YYYY-MM-DD, default today
// GET /stock
func (h *StockHandler) Get(c *gin.Context) {
	date, ok := h.parseDate(c, "date", h.loc)
	if !ok {
		return
	}
	if date.IsZero() {
		now := h.now().In(h.loc)
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	}

	view, degraded, err := h.stock.GetStockView(c.Request.Context(), date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appstock.ToStockViewResponse(view, degraded))
}
