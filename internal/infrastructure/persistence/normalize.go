package persistence

import (
	"slices"
	"strings"
	"time"

	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
)

// normalizeOrderRow is the single place that maps stored rows, whatever
// their shape, onto the domain model:
//   - a missing or unknown payment method becomes cash
//   - an unknown status is read as PENDING; known ones are upper-cased
//   - a NULL subtotal is recomputed as price x quantity
//   - items are ordered by line number
func normalizeOrderRow(m *models.OrderModel) order.Order {
	o := order.Order{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt},
		},
		OrderNumber:   m.OrderNumber,
		Status:        normalizeStatus(m.Status),
		TotalAmount:   m.TotalAmount,
		PaymentMethod: normalizePayment(m.PaymentMethod),
		Items:         make([]order.Item, 0, len(m.Items)),
	}

	rows := slices.Clone(m.Items)
	slices.SortStableFunc(rows, func(a, b models.OrderItemModel) int { return a.LineNo - b.LineNo })
	for _, it := range rows {
		subtotal := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		if it.Subtotal.Valid {
			subtotal = it.Subtotal.Decimal
		}
		o.Items = append(o.Items, order.Item{
			ID:         it.ID,
			OrderID:    m.ID,
			MenuItemID: it.MenuItemID,
			ItemName:   strings.TrimSpace(it.ItemName),
			Quantity:   it.Quantity,
			UnitPrice:  it.Price,
			Subtotal:   subtotal,
		})
	}
	return o
}

func normalizeStatus(raw string) order.Status {
	s, err := order.ParseStatus(raw)
	if err != nil {
		return order.StatusPending
	}
	return s
}

func normalizePayment(raw *string) order.PaymentMethod {
	if raw == nil {
		return order.PaymentCash
	}
	p, err := order.ParsePaymentMethod(*raw)
	if err != nil {
		return order.PaymentCash
	}
	return p
}

// orderToModel maps an order onto its row without items.
func orderToModel(o *order.Order) *models.OrderModel {
	payment := string(o.PaymentMethod)
	return &models.OrderModel{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount,
		PaymentMethod: &payment,
		CreatedAt:     o.CreatedAt,
	}
}

// dateOnly keeps the calendar day of t as UTC midnight, the form stored in
// date columns.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
