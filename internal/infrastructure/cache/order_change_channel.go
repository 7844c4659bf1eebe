package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCloseTimeout = 5 * time.Second

// ChangeMessage is the payload sent on the order change channel.
type ChangeMessage struct {
	Kind      order.ChangeKind `json:"kind"`
	EventType string           `json:"event_type"`
	OrderID   uuid.UUID        `json:"order_id"`
	Origin    string           `json:"origin"`
	Timestamp int64            `json:"timestamp"`
}

// OrderChangeChannel forwards local order events to a redis channel and
// delivers changes made by other instances to a callback. Messages this
// instance published itself are dropped on receipt, since the local event
// bus has already delivered them.
type OrderChangeChannel struct {
	client   *redis.Client
	channel  string
	origin   string
	logger   *zap.Logger
	mu       sync.Mutex
	running  bool
	cancelFn context.CancelFunc
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewOrderChangeChannel creates a channel on an existing client. The caller
// keeps ownership of the client.
func NewOrderChangeChannel(client *redis.Client, channel string, logger *zap.Logger) *OrderChangeChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderChangeChannel{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger.Named("order-change-channel"),
		doneCh:  make(chan struct{}),
	}
}

// Origin identifies this instance in published messages
func (c *OrderChangeChannel) Origin() string {
	return c.origin
}

// Handle forwards an order event to redis. It lets the channel be
// subscribed directly on the event bus.
func (c *OrderChangeChannel) Handle(ctx context.Context, event shared.DomainEvent) error {
	msg, ok := c.messageFor(event)
	if !ok {
		return nil
	}
	return c.Publish(ctx, msg)
}

// EventTypes returns the order event types
func (c *OrderChangeChannel) EventTypes() []string {
	return order.EventTypes()
}

// Publish sends a change message
func (c *OrderChangeChannel) Publish(ctx context.Context, msg ChangeMessage) error {
	if msg.Origin == "" {
		msg.Origin = c.origin
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal change message: %w", err)
	}
	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change message: %w", err)
	}
	return nil
}

// Subscribe blocks, calling onChange for every change published by another
// instance, until ctx is cancelled or Close is called.
func (c *OrderChangeChannel) Subscribe(ctx context.Context, onChange func(ChangeMessage)) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancelFn = cancel
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		c.doneOnce.Do(func() { close(c.doneCh) })
	}()

	pubsub := c.client.Subscribe(subCtx, c.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	c.logger.Info("subscribed to order change channel", zap.String("channel", c.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				c.logger.Warn("order change channel closed")
				return nil
			}
			c.dispatch(msg.Payload, onChange)
		}
	}
}

// Close stops a running subscription and waits briefly for it to exit
func (c *OrderChangeChannel) Close() error {
	c.mu.Lock()
	cancel := c.cancelFn
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-c.doneCh:
	case <-time.After(defaultCloseTimeout):
		c.logger.Warn("timeout waiting for subscription to stop")
	}
	return nil
}

func (c *OrderChangeChannel) dispatch(payload string, onChange func(ChangeMessage)) {
	var msg ChangeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		c.logger.Warn("dropping malformed change message", zap.String("payload", payload), zap.Error(err))
		return
	}
	if msg.Origin == c.origin {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in change callback", zap.Any("panic", r))
		}
	}()
	onChange(msg)
}

func (c *OrderChangeChannel) messageFor(event shared.DomainEvent) (ChangeMessage, bool) {
	kind, ok := order.ChangeKindOf(event.EventType())
	if !ok {
		return ChangeMessage{}, false
	}
	return ChangeMessage{
		Kind:      kind,
		EventType: event.EventType(),
		OrderID:   event.AggregateID(),
		Origin:    c.origin,
		Timestamp: event.OccurredAt().UnixNano(),
	}, true
}

var _ shared.EventHandler = (*OrderChangeChannel)(nil)
