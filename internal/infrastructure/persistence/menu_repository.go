package persistence

import (
	"context"

	"github.com/pos/backend/internal/domain/menu"
	"github.com/pos/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMenuRepository reads the menu_items table
type GormMenuRepository struct {
	db *gorm.DB
}

// NewGormMenuRepository creates a new GormMenuRepository
func NewGormMenuRepository(db *gorm.DB) *GormMenuRepository {
	return &GormMenuRepository{db: db}
}

// List returns catalog entries in creation order
func (r *GormMenuRepository) List(ctx context.Context, enabledOnly bool) ([]menu.Item, error) {
	var rows []models.MenuItemModel
	q := r.db.WithContext(ctx).Model(&models.MenuItemModel{})
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	if err := q.Order("created_at ASC").Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]menu.Item, len(rows))
	for i, m := range rows {
		items[i] = menu.Item{
			ID:                 m.ID,
			Name:               m.Name,
			Price:              m.Price,
			Unit:               m.Unit,
			Category:           m.Category,
			DailyStockQuantity: m.DailyStockQuantity,
			Enabled:            m.Enabled,
			CreatedAt:          m.CreatedAt,
		}
	}
	return items, nil
}

var _ menu.Reader = (*GormMenuRepository)(nil)
