package persistence

import (
	"context"
	"time"

	"github.com/pos/backend/internal/domain/stock"
	"github.com/pos/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockLogRepository reads the stock_logs table
type GormStockLogRepository struct {
	db *gorm.DB
}

// NewGormStockLogRepository creates a new GormStockLogRepository
func NewGormStockLogRepository(db *gorm.DB) *GormStockLogRepository {
	return &GormStockLogRepository{db: db}
}

// FindByDate returns the logs of one calendar day
func (r *GormStockLogRepository) FindByDate(ctx context.Context, date time.Time) ([]stock.Log, error) {
	var rows []models.StockLogModel
	err := r.db.WithContext(ctx).
		Select("menu_item_id", "date", "prepared_quantity", "remaining_quantity").
		Where("date = ?", dateOnly(date)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	logs := make([]stock.Log, len(rows))
	for i, m := range rows {
		logs[i] = stock.Log{
			Date:              m.Date,
			MenuItemID:        m.MenuItemID,
			PreparedQuantity:  m.PreparedQuantity,
			RemainingQuantity: m.RemainingQuantity,
		}
	}
	return logs, nil
}

var _ stock.LogRepository = (*GormStockLogRepository)(nil)
