package report

import (
	"time"

	"github.com/pos/backend/internal/domain/report"
	"github.com/shopspring/decimal"
)

// SalesReportQuery selects the report range and shift
type SalesReportQuery struct {
	Start time.Time
	End   time.Time
	Shift report.Shift
}

// DashboardFigures are the headline numbers of the dashboard page
type DashboardFigures struct {
	Date           string          `json:"date"`
	TodayOrders    int             `json:"today_orders"`
	TodayRevenue   decimal.Decimal `json:"today_revenue"`
	PendingOrders  int64           `json:"pending_orders"`
	LowStockAlerts int             `json:"low_stock_alerts"`
}

// DailySummaryResponse is one rollup row
type DailySummaryResponse struct {
	Date         string          `json:"date"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalOrders  int             `json:"total_orders"`
}

// ToDailySummaryResponses converts rollup rows, keeping their order
func ToDailySummaryResponses(rows []report.DailySalesSummary) []DailySummaryResponse {
	out := make([]DailySummaryResponse, len(rows))
	for i, r := range rows {
		out[i] = DailySummaryResponse{
			Date:         r.Date.UTC().Format(time.DateOnly),
			TotalRevenue: r.TotalRevenue,
			TotalOrders:  r.TotalOrders,
		}
	}
	return out
}
