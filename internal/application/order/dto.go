package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// CartLine is one line of a till cart. UnitPrice is a pointer so an absent
// price is told apart from an explicit 0.
type CartLine struct {
	MenuItemID *uuid.UUID       `json:"menu_item_id"`
	Name       string           `json:"name" validate:"required,max=200"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	Quantity   int              `json:"quantity" validate:"min=1,max=10000"`
}

// SubmitOrderCommand is the input of SubmitOrder
type SubmitOrderCommand struct {
	Lines         []CartLine `json:"lines" validate:"required,min=1,max=200,dive"`
	PaymentMethod string     `json:"payment_method" validate:"required"`
}

// SubmitOrderResult is returned once both the order and its items are stored
type SubmitOrderResult struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderFilter narrows ListOrders
type OrderFilter struct {
	Status *order.Status
	From   *time.Time
	To     *time.Time
	Limit  int
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	MenuItemID *uuid.UUID      `json:"menu_item_id,omitempty"`
	ItemName   string          `json:"item_name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        string              `json:"status"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod string              `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ToOrderResponse converts a domain order to a response DTO
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			ItemName:   item.ItemName,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Subtotal:   item.LineTotal(),
		}
	}
	return OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status.String(),
		TotalAmount:   o.TotalAmount,
		PaymentMethod: string(o.PaymentMethod),
		ItemCount:     o.ItemCount(),
		Items:         items,
		CreatedAt:     o.CreatedAt,
	}
}

// ToOrderResponses converts a list of domain orders
func ToOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}
