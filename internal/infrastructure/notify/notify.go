// Package notify implements the order notification sink. Every
// implementation is best effort; callers never fail an order on its errors.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notification is the payload published for a new order.
type Notification struct {
	Type        string    `json:"type"`
	OrderNumber string    `json:"order_number"`
	Timestamp   time.Time `json:"timestamp"`
}

const notificationTypeNewOrder = "order.new"

func encode(orderNumber string, now time.Time) ([]byte, error) {
	return json.Marshal(Notification{Type: notificationTypeNewOrder, OrderNumber: orderNumber, Timestamp: now.UTC()})
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the new order
func (n *LogNotifier) Notify(_ context.Context, orderNumber string) error {
	n.logger.Info("new order", zap.String("order_number", orderNumber))
	return nil
}

// RedisNotifier publishes notifications on a redis channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

// NewRedisNotifier creates a RedisNotifier on an existing client
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, now: time.Now}
}

// Notify publishes the order number
func (n *RedisNotifier) Notify(ctx context.Context, orderNumber string) error {
	body, err := encode(orderNumber, n.now())
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, body).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// MultiNotifier fans a notification out to several sinks.
type MultiNotifier []order.Notifier

// Notify calls every sink and joins their errors
func (m MultiNotifier) Notify(ctx context.Context, orderNumber string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, orderNumber); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the notifier selected by cfg.Kind. The log sink is always
// included. The returned closer releases broker connections.
func New(cfg config.NotifyConfig, redisClient *redis.Client, logger *zap.Logger) (order.Notifier, io.Closer, error) {
	sinks := MultiNotifier{NewLogNotifier(logger)}

	switch cfg.Kind {
	case "", "log":
		return sinks, nopCloser{}, nil
	case "redis":
		if redisClient == nil {
			return nil, nil, errors.New("redis notifier requires a redis client")
		}
		return append(sinks, NewRedisNotifier(redisClient, cfg.Channel)), nopCloser{}, nil
	case "amqp":
		n, err := DialAMQP(cfg.AMQPURL, cfg.Exchange)
		if err != nil {
			return nil, nil, err
		}
		return append(sinks, n), n, nil
	}
	return nil, nil, fmt.Errorf("unknown notifier kind %q", cfg.Kind)
}

var (
	_ order.Notifier = (*LogNotifier)(nil)
	_ order.Notifier = (*RedisNotifier)(nil)
	_ order.Notifier = MultiNotifier(nil)
)
