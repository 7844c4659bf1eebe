package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DailySalesSummary is the independently maintained per-day rollup.
type DailySalesSummary struct {
	Date         time.Time
	TotalRevenue decimal.Decimal
	TotalOrders  int
}

// SummaryRepository reads and maintains the daily rollup.
type SummaryRepository interface {
	// FindBetween returns rows with start <= date <= end, ordered by date.
	FindBetween(ctx context.Context, start, end time.Time) ([]DailySalesSummary, error)
	// Upsert writes one day's rollup, replacing an existing row.
	Upsert(ctx context.Context, summary DailySalesSummary) error
}
