// Package broker publishes domain events onto a durable RabbitMQ queue.
// Delivery is at-least-once at the broker level; publish failures are the
// caller's to log and drop, never to propagate into a committed command.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publishTimeout bounds how long a publish may block on the broker. The
// mutation path must never hang on broker availability.
const publishTimeout = 5 * time.Second

// Envelope is the wire format on the tasks queue: a pattern tag and the
// serialized entity snapshot.
type Envelope struct {
	Pattern string          `json:"pattern"`
	Data    json.RawMessage `json:"data"`
}

// Publisher delivers domain events to the notifications tier.
type Publisher interface {
	Publish(ctx context.Context, pattern string, data any) error
	Close() error
}

// AMQPPublisher publishes events onto a durable queue over AMQP 0.9.1.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewAMQPPublisher connects to the broker and declares the durable queue so
// events published before any consumer attaches are retained.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = channel.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	slog.Info("broker connected", "queue", queue)

	return &AMQPPublisher{conn: conn, channel: channel, queue: queue}, nil
}

// Publish sends one event as a persistent message on the durable queue.
func (p *AMQPPublisher) Publish(ctx context.Context, pattern string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	body, err := json.Marshal(Envelope{Pattern: pattern, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(publishCtx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", pattern, err)
	}

	return nil
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}

// NoopPublisher discards all events. Used when running without a broker
// and as a default in tests.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(ctx context.Context, pattern string, data any) error {
	return nil
}

// Close does nothing.
func (NoopPublisher) Close() error { return nil }
