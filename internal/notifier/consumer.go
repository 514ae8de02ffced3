package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JoaoMaganin/syncflow/internal/broker"
	"github.com/JoaoMaganin/syncflow/internal/domain"
)

// eventNames maps queue patterns to the websocket event names clients
// subscribe to.
var eventNames = map[string]string{
	domain.EventTaskCreated:    "new_task",
	domain.EventTaskUpdated:    "task_updated_event",
	domain.EventCommentCreated: "new_comment",
	domain.EventTaskDeleted:    "task_deleted_event",
}

// Broadcaster receives decoded events for fan-out.
type Broadcaster interface {
	Broadcast(event string, data json.RawMessage)
}

// Consumer reads the durable tasks queue and hands each event to the
// broadcaster. The queue and consumer are durable so a restart resumes
// where it left off instead of resetting.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	hub     Broadcaster
}

// NewConsumer connects to the broker and declares the durable queue.
func NewConsumer(url, queue string, hub Broadcaster) (*Consumer, error) {
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

	return &Consumer{conn: conn, channel: channel, queue: queue, hub: hub}, nil
}

// Run consumes deliveries until the context is cancelled or the broker
// closes the channel. Deliveries are acked manually; anything unacked
// when the connection drops is redelivered on reconnect.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx,
		c.queue,
		"notifications", // named consumer
		false,           // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", c.queue, err)
	}

	slog.Info("consuming events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.queue)
			}
			c.handleDelivery(delivery)
		}
	}
}

// handleDelivery decodes one envelope and broadcasts it. Undecodable
// bodies are acked and logged; requeueing them would loop forever.
func (c *Consumer) handleDelivery(delivery amqp.Delivery) {
	var envelope broker.Envelope
	if err := json.Unmarshal(delivery.Body, &envelope); err != nil {
		slog.Error("discarding malformed event", "error", err)
		if err := delivery.Ack(false); err != nil {
			slog.Error("failed to ack delivery", "error", err)
		}
		return
	}

	event, ok := eventNames[envelope.Pattern]
	if !ok {
		slog.Warn("discarding event with unknown pattern", "pattern", envelope.Pattern)
		if err := delivery.Ack(false); err != nil {
			slog.Error("failed to ack delivery", "error", err)
		}
		return
	}

	c.hub.Broadcast(event, envelope.Data)

	if err := delivery.Ack(false); err != nil {
		slog.Error("failed to ack delivery", "pattern", envelope.Pattern, "error", err)
		return
	}

	slog.Debug("event fanned out", "pattern", envelope.Pattern, "event", event)
}

// Close shuts down the channel and connection.
func (c *Consumer) Close() error {
	if err := c.channel.Close(); err != nil {
		c.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
