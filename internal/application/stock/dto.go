package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/stock"
)

// StockLineResponse is one menu item in the stock view
type StockLineResponse struct {
	MenuItemID    uuid.UUID `json:"menu_item_id"`
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	Unit          string    `json:"unit,omitempty"`
	Prepared      int       `json:"prepared"`
	Remaining     int       `json:"remaining"`
	Status        string    `json:"status"`
	LowStockAlert bool      `json:"low_stock_alert"`
	Logged        bool      `json:"logged"`
}

// StockTotalsResponse summarizes the stock view
type StockTotalsResponse struct {
	Items      int `json:"items"`
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_of_stock"`
	Prepared   int `json:"prepared"`
	Remaining  int `json:"remaining"`
	LowAlerts  int `json:"low_alerts"`
}

// StockViewResponse is the stock page for one day
type StockViewResponse struct {
	Date     string              `json:"date"`
	Degraded bool                `json:"degraded"`
	Lines    []StockLineResponse `json:"lines"`
	Totals   StockTotalsResponse `json:"totals"`
}

// ToStockViewResponse converts a reconciled view to its response DTO
func ToStockViewResponse(v stock.View, degraded bool) StockViewResponse {
	lines := make([]StockLineResponse, len(v.Lines))
	for i, l := range v.Lines {
		lines[i] = StockLineResponse{
			MenuItemID:    l.Item.ID,
			Name:          l.Item.Name,
			Category:      l.Item.Category,
			Unit:          l.Item.Unit,
			Prepared:      l.Prepared,
			Remaining:     l.Remaining,
			Status:        string(l.Status),
			LowStockAlert: l.LowStockAlert,
			Logged:        l.Logged,
		}
	}
	return StockViewResponse{
		Date:     v.Date.Format(time.DateOnly),
		Degraded: degraded,
		Lines:    lines,
		Totals: StockTotalsResponse{
			Items:      v.Totals.Items,
			InStock:    v.Totals.InStock,
			OutOfStock: v.Totals.OutOfStock,
			Prepared:   v.Totals.Prepared,
			Remaining:  v.Totals.Remaining,
			LowAlerts:  v.Totals.LowAlerts,
		},
	}
}
