package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	orderColumns        = []string{"id", "order_number", "status", "total_amount", "payment_method", "created_at"}
	reducedOrderColumns = []string{"id", "order_number", "status", "total_amount", "created_at"}
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create inserts the order row without its items
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(orderToModel(o)).Error
	return translate(err)
}

// CreateItems inserts the item batch of an order
func (r *GormOrderRepository) CreateItems(ctx context.Context, orderID uuid.UUID, items []order.Item) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.OrderItemModel, len(items))
	for i, it := range items {
		id := it.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		rows[i] = models.OrderItemModel{
			ID:         id,
			OrderID:    orderID,
			MenuItemID: it.MenuItemID,
			LineNo:     i,
			ItemName:   it.ItemName,
			Quantity:   it.Quantity,
			Price:      it.UnitPrice,
			Subtotal:   decimal.NewNullDecimal(it.Subtotal),
		}
	}
	return translate(r.db.WithContext(ctx).Create(&rows).Error)
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	rows, err := r.findOrders(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("id = ?", id).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	o := normalizeOrderRow(&rows[0])
	return &o, nil
}

// UpdateStatus overwrites the status column
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the items, then the order
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.OrderModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// List returns orders newest first with their items
func (r *GormOrderRepository) List(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	rows, err := r.findOrders(ctx, func(q *gorm.DB) *gorm.DB {
		if filter.Status != nil {
			q = q.Where("status = ?", string(*filter.Status))
		}
		if filter.From != nil {
			q = q.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("created_at <= ?", *filter.To)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q.Order("created_at DESC")
	})
	if err != nil {
		return nil, err
	}

	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = normalizeOrderRow(&rows[i])
	}
	return orders, nil
}

// CountByStatus counts orders in a status
func (r *GormOrderRepository) CountByStatus(ctx context.Context, status order.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("status = ?", string(status)).
		Count(&count).Error
	return count, err
}

// findOrders runs the order query with the full field set and, if the
// payment_method column is missing, once more with the reduced set.
func (r *GormOrderRepository) findOrders(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]models.OrderModel, error) {
	rows, err := r.queryOrders(ctx, orderColumns, scope)
	if isMissingColumn(err, "payment_method") {
		logger.FromContext(ctx).Warn("orders.payment_method missing, retrying with reduced field set", zap.Error(err))
		rows, err = r.queryOrders(ctx, reducedOrderColumns, scope)
	}
	return rows, err
}

func (r *GormOrderRepository) queryOrders(ctx context.Context, columns []string, scope func(*gorm.DB) *gorm.DB) ([]models.OrderModel, error) {
	var rows []models.OrderModel
	q := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select(columns).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") })
	if err := scope(q).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var _ order.Repository = (*GormOrderRepository)(nil)
