package sync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	apporder "github.com/pos/backend/internal/application/order"
	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// OrderMutator performs the store-side order mutations
type OrderMutator interface {
	MarkPlaced(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, rawStatus string) (*apporder.OrderResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Mutation is an optimistic change: Local edits the shared snapshot right
// away, Remote applies it to the store.
type Mutation struct {
	Name   string
	Local  func(*Snapshot)
	Remote func(ctx context.Context) error
}

// MutationCommand applies mutations optimistically. Any rejection invalidates
// the local view. Classified store errors (not found, invalid state, input,
// dependency) are returned as they are; anything else comes back as a
// StaleViewError wrapping the cause.
type MutationCommand struct {
	sync   *Synchronizer
	orders OrderMutator
}

// NewMutationCommand creates a MutationCommand
func NewMutationCommand(s *Synchronizer, orders OrderMutator) *MutationCommand {
	return &MutationCommand{sync: s, orders: orders}
}

// Execute runs a mutation
func (c *MutationCommand) Execute(ctx context.Context, m Mutation) error {
	if m.Local != nil {
		c.sync.applyLocal(m.Local)
	}
	if err := m.Remote(ctx); err != nil {
		c.sync.Invalidate()
		logger.L(ctx).Warn("Optimistic order change rejected, resynchronizing",
			zap.String("mutation", m.Name),
			zap.Error(err),
		)
		if classified(err) {
			return err
		}
		return shared.NewStaleViewError(err)
	}
	c.sync.Trigger(TriggerPush)
	return nil
}

// classified reports whether err already carries a domain code the caller
// can act on.
func classified(err error) bool {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return true
	}
	var pw *shared.PartialWriteError
	return errors.As(err, &pw)
}

// MarkPlaced flips the order to PLACED locally, then in the store
func (c *MutationCommand) MarkPlaced(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error) {
	var resp *apporder.OrderResponse
	err := c.Execute(ctx, Mutation{
		Name: "mark_placed",
		Local: func(snap *Snapshot) {
			i := indexOf(snap.Orders, id)
			if i < 0 || snap.Orders[i].Status != order.StatusPending.String() {
				return
			}
			snap.Orders[i].Status = order.StatusPlaced.String()
			if snap.PendingCount > 0 {
				snap.PendingCount--
			}
		},
		Remote: func(ctx context.Context) error {
			var err error
			resp, err = c.orders.MarkPlaced(ctx, id)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateStatus routes a status change by name. Only PLACED edits the local
// view; other targets go straight to the store, which rejects them.
func (c *MutationCommand) UpdateStatus(ctx context.Context, id uuid.UUID, rawStatus string) (*apporder.OrderResponse, error) {
	target, err := order.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	if target != order.StatusPlaced {
		return c.orders.UpdateStatus(ctx, id, rawStatus)
	}
	return c.MarkPlaced(ctx, id)
}

// Delete drops the order locally, then in the store
func (c *MutationCommand) Delete(ctx context.Context, id uuid.UUID) error {
	return c.Execute(ctx, Mutation{
		Name: "delete",
		Local: func(snap *Snapshot) {
			i := indexOf(snap.Orders, id)
			if i < 0 {
				return
			}
			if snap.Orders[i].Status == order.StatusPending.String() && snap.PendingCount > 0 {
				snap.PendingCount--
			}
			snap.Orders = append(snap.Orders[:i], snap.Orders[i+1:]...)
		},
		Remote: func(ctx context.Context) error {
			return c.orders.Delete(ctx, id)
		},
	})
}
