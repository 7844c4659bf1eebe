// Package order holds the order aggregate: a priced snapshot of a cart with a
// two-state lifecycle.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the status of an order
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPlaced  Status = "PLACED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusPlaced
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// PLACED is terminal.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusPending && target == StatusPlaced
}

// ParseStatus parses a status case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", shared.NewInputError("unknown order status %q", raw)
	}
	return s, nil
}

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

// IsValid checks if the payment method is supported
func (p PaymentMethod) IsValid() bool {
	return p == PaymentCash || p == PaymentOnline
}

// ParsePaymentMethod parses a payment method case-insensitively.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", shared.NewInputError("payment method is required")
	}
	p := PaymentMethod(strings.ToLower(trimmed))
	if !p.IsValid() {
		return "", shared.NewInputError("payment method %q is not supported", raw)
	}
	return p, nil
}

// Line is one cart line as submitted by the till.
type Line struct {
	MenuItemID *uuid.UUID
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Validate checks a cart line before anything is written.
func (l Line) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return shared.NewInputError("item name is required")
	}
	if l.UnitPrice.IsNegative() {
		return shared.NewInputError("unit price of %q cannot be negative", l.Name)
	}
	// Prices are stored at cent precision; a finer price would round on
	// write and break the order total.
	if !l.UnitPrice.Equal(l.UnitPrice.Round(2)) {
		return shared.NewInputError("unit price of %q has more than 2 decimal places", l.Name)
	}
	if l.Quantity < 1 {
		return shared.NewInputError("quantity of %q must be at least 1", l.Name)
	}
	return nil
}

// Subtotal returns unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Item is an immutable line snapshot owned by exactly one order.
type Item struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID *uuid.UUID
	ItemName   string
	Quantity   int
	UnitPrice  decimal.Decimal
	Subtotal   decimal.Decimal
}

// LineTotal returns the subtotal, falling back to unit price times quantity
// for rows stored without one.
func (i Item) LineTotal() decimal.Decimal {
	if !i.Subtotal.IsZero() {
		return i.Subtotal
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the order aggregate root. TotalAmount is fixed at creation; only
// Status changes afterwards.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber   string
	Status        Status
	TotalAmount   decimal.Decimal
	PaymentMethod PaymentMethod
	Items         []Item
}

// NewOrder prices the cart and creates a PENDING order.
func NewOrder(orderNumber string, payment PaymentMethod, lines []Line, now time.Time) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewInputError("order number is required")
	}
	if !payment.IsValid() {
		return nil, shared.NewInputError("payment method %q is not supported", payment)
	}
	if len(lines) == 0 {
		return nil, shared.NewInputError("cart is empty")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		OrderNumber:       orderNumber,
		Status:            StatusPending,
		PaymentMethod:     payment,
		Items:             make([]Item, 0, len(lines)),
		TotalAmount:       decimal.Zero,
	}

	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, err
		}
		subtotal := line.Subtotal()
		o.Items = append(o.Items, Item{
			ID:         uuid.New(),
			OrderID:    o.ID,
			MenuItemID: line.MenuItemID,
			ItemName:   strings.TrimSpace(line.Name),
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Subtotal:   subtotal,
		})
		o.TotalAmount = o.TotalAmount.Add(subtotal)
	}

	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// MarkPlaced moves a PENDING order to PLACED.
func (o *Order) MarkPlaced() error {
	if !o.Status.CanTransitionTo(StatusPlaced) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot place order %s in %s status", o.OrderNumber, o.Status))
	}
	previous := o.Status
	o.Status = StatusPlaced
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous))
	return nil
}

// MarkDeleted records the deletion event; the repository removes the rows.
func (o *Order) MarkDeleted() {
	o.AddDomainEvent(NewOrderDeletedEvent(o))
}

// ItemsTotal sums the line totals.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// TotalMatchesItems reports whether TotalAmount equals the sum of its items.
func (o *Order) TotalMatchesItems() bool {
	return o.TotalAmount.Equal(o.ItemsTotal())
}

// IsPending reports whether the order still awaits placement.
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Items)
}
