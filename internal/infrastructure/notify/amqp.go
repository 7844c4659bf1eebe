package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pos/backend/internal/domain/order"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher is the part of *amqp.Channel the notifier uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes notifications to a RabbitMQ fanout exchange.
type AMQPNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  publisher
	exchange string
	now      func() time.Time
}

// DialAMQP connects to the broker and declares the fanout exchange.
func DialAMQP(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPNotifier{conn: conn, channel: ch, exchange: exchange, now: time.Now}, nil
}

// Notify publishes a persistent JSON message
func (n *AMQPNotifier) Notify(ctx context.Context, orderNumber string) error {
	body, err := encode(orderNumber, n.now())
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing.
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.channel.PublishWithContext(ctx,
		n.exchange, // exchange
		"",         // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    n.now(),
		})
}

// Close closes the channel and the connection
func (n *AMQPNotifier) Close() error {
	if ch, ok := n.channel.(*amqp.Channel); ok && ch != nil {
		_ = ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

var _ order.Notifier = (*AMQPNotifier)(nil)
