package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel maps the orders table. PaymentMethod is nullable because older
// databases predate the column.
type OrderModel struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OrderNumber   string           `gorm:"type:varchar(32);not null;uniqueIndex:idx_orders_order_number"`
	Status        string           `gorm:"type:varchar(16);not null;default:'PENDING';index"`
	TotalAmount   decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0"`
	PaymentMethod *string          `gorm:"type:varchar(16)"`
	CreatedAt     time.Time        `gorm:"not null;index"`
	Items         []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel maps the order_items table. Subtotal may be NULL in rows
// written by older clients.
type OrderItemModel struct {
	ID         uuid.UUID           `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	MenuItemID *uuid.UUID          `gorm:"type:uuid"`
	LineNo     int                 `gorm:"not null;default:0"`
	ItemName   string              `gorm:"type:varchar(200);not null"`
	Quantity   int                 `gorm:"not null"`
	Price      decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	Subtotal   decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	CreatedAt  time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// MenuItemModel maps the menu_items table, which is owned by the catalog.
type MenuItemModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name               string          `gorm:"type:varchar(200);not null"`
	Price              decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Unit               string          `gorm:"type:varchar(20)"`
	Category           string          `gorm:"type:varchar(100)"`
	DailyStockQuantity int             `gorm:"not null;default:0"`
	Enabled            bool            `gorm:"not null"`
	CreatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MenuItemModel) TableName() string {
	return "menu_items"
}

// StockLogModel maps the stock_logs table.
type StockLogModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Date              time.Time `gorm:"type:date;not null;uniqueIndex:idx_stock_logs_date_item,priority:1"`
	MenuItemID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_logs_date_item,priority:2"`
	PreparedQuantity  int       `gorm:"not null;default:0"`
	RemainingQuantity int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (StockLogModel) TableName() string {
	return "stock_logs"
}

// DailySalesSummaryModel maps the daily_sales_summary rollup table.
type DailySalesSummaryModel struct {
	Date         time.Time       `gorm:"type:date;primaryKey"`
	TotalRevenue decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalOrders  int             `gorm:"not null;default:0"`
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (DailySalesSummaryModel) TableName() string {
	return "daily_sales_summary"
}

// All lists every model, in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&MenuItemModel{},
		&OrderModel{},
		&OrderItemModel{},
		&StockLogModel{},
		&DailySalesSummaryModel{},
	}
}
