package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NumberSource hands out order numbers
type NumberSource interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

const defaultNotifyTimeout = 5 * time.Second

// IngestionService turns a till cart into a stored order
type IngestionService struct {
	repo          order.Repository
	numbers       NumberSource
	notifier      order.Notifier
	notifyTimeout time.Duration
	validate      *validator.Validate
	now           func() time.Time

	eventPublisher shared.EventPublisher
	metrics        *telemetry.POSMetrics
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(repo order.Repository, numbers NumberSource, notifier order.Notifier) *IngestionService {
	return &IngestionService{
		repo:          repo,
		numbers:       numbers,
		notifier:      notifier,
		notifyTimeout: defaultNotifyTimeout,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		now:           time.Now,
	}
}

// SetEventPublisher sets the publisher that feeds the synchronizer
func (s *IngestionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the business metrics recorder
func (s *IngestionService) SetMetrics(m *telemetry.POSMetrics) {
	s.metrics = m
}

// SetNotifyTimeout bounds each background notification
func (s *IngestionService) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		s.notifyTimeout = d
	}
}

// SubmitOrder validates and prices the cart, inserts the order row, then
// its items. The two inserts are separate; an item failure after the order
// row landed yields a PartialWriteError and the order row stays.
func (s *IngestionService) SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (*SubmitOrderResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_ingestion", "submit", telemetry.SpanAttrItemCount, len(cmd.Lines))
	defer span.End()
	log := logger.L(ctx)

	payment, lines, err := s.parse(cmd)
	if err != nil {
		s.metrics.RecordSubmission(ctx, telemetry.OutcomeInvalid, "unknown", decimal.Zero)
		return nil, err
	}

	o, err := s.insertOrder(ctx, payment, lines)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordSubmission(ctx, outcomeOf(err), string(payment), decimal.Zero)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, o.ID.String(), telemetry.SpanAttrOrderNumber, o.OrderNumber)

	if err := s.repo.CreateItems(ctx, o.ID, o.Items); err != nil {
		log.Error("Order stored without its items",
			zap.String("order_id", o.ID.String()),
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
		pw := &shared.PartialWriteError{ParentID: o.ID, Reference: o.OrderNumber, Err: err}
		telemetry.RecordError(span, pw)
		s.metrics.RecordSubmission(ctx, telemetry.OutcomePartialWrite, string(payment), o.TotalAmount)
		return nil, pw
	}

	s.publishEvents(ctx, o)
	s.notify(ctx, o.OrderNumber)
	s.metrics.RecordSubmission(ctx, telemetry.OutcomeStored, string(payment), o.TotalAmount)

	log.Info("Order submitted",
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.TotalAmount.StringFixed(2)),
		zap.Int("items", o.ItemCount()),
	)

	return &SubmitOrderResult{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TotalAmount: o.TotalAmount,
	}, nil
}

// parse runs struct validation then the domain checks. Nothing is written
// or reserved until both pass.
func (s *IngestionService) parse(cmd SubmitOrderCommand) (order.PaymentMethod, []order.Line, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return "", nil, inputErrorFromValidation(err)
	}
	payment, err := order.ParsePaymentMethod(cmd.PaymentMethod)
	if err != nil {
		return "", nil, err
	}

	lines := make([]order.Line, len(cmd.Lines))
	for i, l := range cmd.Lines {
		if l.UnitPrice == nil {
			return "", nil, shared.NewInputError("unit price of %q is required", l.Name)
		}
		lines[i] = order.Line{
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			UnitPrice:  *l.UnitPrice,
			Quantity:   l.Quantity,
		}
		if err := lines[i].Validate(); err != nil {
			return "", nil, err
		}
	}
	return payment, lines, nil
}

// insertOrder generates a number and inserts the order row. A unique
// violation on the number is retried once with a fresh number; no row
// exists at that point so the retry is safe.
func (s *IngestionService) insertOrder(ctx context.Context, payment order.PaymentMethod, lines []order.Line) (*order.Order, error) {
	const attempts = 2
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		now := s.now()
		number, err := s.numbers.Next(ctx, now)
		if err != nil {
			return nil, err
		}

		o, err := order.NewOrder(number, payment, lines, now)
		if err != nil {
			return nil, err
		}

		err = s.repo.Create(ctx, o)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDependencyError("create order", err)
		}

		logger.L(ctx).Warn("Order number collided on insert, regenerating",
			zap.String("order_number", number),
			zap.Int("attempt", attempt+1),
		)
		lastErr = err
	}
	return nil, shared.NewDependencyError("create order", lastErr)
}

func (s *IngestionService) publishEvents(ctx context.Context, o *order.Order) {
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

// notify is fire-and-forget: it outlives the request but not the timeout.
func (s *IngestionService) notify(ctx context.Context, orderNumber string) {
	if s.notifier == nil {
		return
	}
	log := logger.L(ctx)
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Error("Notifier panicked", zap.Any("panic", r))
			}
		}()
		if err := s.notifier.Notify(notifyCtx, orderNumber); err != nil {
			s.metrics.RecordNotifyFailure(notifyCtx)
			log.Warn("Order notification failed",
				zap.String("order_number", orderNumber),
				zap.Error(err),
			)
		}
	}()
}

func outcomeOf(err error) string {
	if errors.Is(err, shared.ErrInput) {
		return telemetry.OutcomeInvalid
	}
	return telemetry.OutcomeFailed
}

func inputErrorFromValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return shared.NewInputError("invalid order: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return shared.NewInputError("invalid order: %s", strings.Join(msgs, "; "))
}
