package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OrderService drives the order state machine and read queries
type OrderService struct {
	repo           order.Repository
	eventPublisher shared.EventPublisher
	metrics        *telemetry.POSMetrics
}

// NewOrderService creates a new OrderService
func NewOrderService(repo order.Repository) *OrderService {
	return &OrderService{repo: repo}
}

// SetEventPublisher sets the event publisher for domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the business metrics recorder
func (s *OrderService) SetMetrics(m *telemetry.POSMetrics) {
	s.metrics = m
}

// MarkPlaced moves a PENDING order to PLACED. The read and the write are
// separate statements; two concurrent callers both succeed.
func (s *OrderService) MarkPlaced(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "mark_placed", telemetry.SpanAttrOrderID, id.String())
	defer span.End()

	o, err := s.find(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := o.MarkPlaced(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, o.ID, o.Status); err != nil {
		telemetry.RecordError(span, err)
		return nil, storeError("update order status", err)
	}

	s.publishEvents(ctx, o)
	s.metrics.RecordStatusChange(ctx, o.Status.String())

	logger.L(ctx).Info("Order placed", zap.String("order_number", o.OrderNumber))
	resp := ToOrderResponse(o)
	return &resp, nil
}

// UpdateStatus accepts a status name in any case. PLACED is the only legal
// target, so this is MarkPlaced with parsing in front.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, rawStatus string) (*OrderResponse, error) {
	target, err := order.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	if target != order.StatusPlaced {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot move an order to %s", target))
	}
	return s.MarkPlaced(ctx, id)
}

// Delete removes an order and its items
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "delete", telemetry.SpanAttrOrderID, id.String())
	defer span.End()

	o, err := s.find(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return storeError("delete order", err)
	}

	o.MarkDeleted()
	s.publishEvents(ctx, o)

	logger.L(ctx).Info("Order deleted", zap.String("order_number", o.OrderNumber))
	return nil
}

// GetOrder returns a single order with its items
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListOrders returns orders newest first with their items
func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter) ([]OrderResponse, error) {
	orders, err := s.repo.List(ctx, order.Filter{
		Status: filter.Status,
		From:   filter.From,
		To:     filter.To,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, shared.NewDependencyError("list orders", err)
	}
	return ToOrderResponses(orders), nil
}

// CountPending returns the number of PENDING orders
func (s *OrderService) CountPending(ctx context.Context) (int64, error) {
	count, err := s.repo.CountByStatus(ctx, order.StatusPending)
	if err != nil {
		return 0, shared.NewDependencyError("count pending orders", err)
	}
	return count, nil
}

func (s *OrderService) find(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("find order", err)
	}
	return o, nil
}

func (s *OrderService) publishEvents(ctx context.Context, o *order.Order) {
	defer o.ClearDomainEvents()
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
		logger.L(ctx).Warn("Failed to publish order events",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
	}
}

// storeError passes domain errors through and wraps everything else as a
// dependency failure.
func storeError(op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewDependencyError(op, err)
}
