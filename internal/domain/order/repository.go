package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows an order listing. Nil fields are ignored.
type Filter struct {
	Status *Status
	From   *time.Time
	To     *time.Time
	Limit  int
}

// Repository defines order persistence. Create and CreateItems are separate
// writes with no surrounding transaction.
type Repository interface {
	// Create inserts the order row only.
	Create(ctx context.Context, o *Order) error
	// CreateItems inserts the item batch for an existing order.
	CreateItems(ctx context.Context, orderID uuid.UUID, items []Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// UpdateStatus writes the status unconditionally (last writer wins).
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// Delete removes the items first, then the order.
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns orders newest first with their items.
	List(ctx context.Context, filter Filter) ([]Order, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
}

// Notifier is told about every stored order. Callers ignore its errors.
type Notifier interface {
	Notify(ctx context.Context, orderNumber string) error
}
