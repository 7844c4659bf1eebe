// Package menu is the read-only catalog snapshot used by ingestion and stock.
package menu

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a catalog entry. DailyStockQuantity is the baseline used when a day
// has no stock log.
type Item struct {
	ID                 uuid.UUID
	Name               string
	Price              decimal.Decimal
	Unit               string
	Category           string
	DailyStockQuantity int
	Enabled            bool
	CreatedAt          time.Time
}

// Reader lists catalog entries in creation order.
type Reader interface {
	List(ctx context.Context, enabledOnly bool) ([]Item, error)
}
