package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JoaoMaganin/syncflow/internal/broker"
	"github.com/JoaoMaganin/syncflow/internal/handler/dto"
)

// replyTimeout bounds publishing a reply so a wedged broker cannot stall
// the consume loop.
const replyTimeout = 5 * time.Second

// Server consumes the command queue and answers each request on its
// reply-to queue, correlated by the request's correlation id.
type Server struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	handler *Handler
}

// NewServer connects to the broker and declares the durable command queue.
func NewServer(url, queue string, h *Handler) (*Server, error) {
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

	return &Server{conn: conn, channel: channel, queue: queue, handler: h}, nil
}

// Run consumes commands until the context is cancelled or the broker
// closes the channel. Commands are acked after the reply is sent;
// anything unacked when the connection drops is redelivered.
func (s *Server) Run(ctx context.Context) error {
	deliveries, err := s.channel.ConsumeWithContext(ctx,
		s.queue,
		"tasks", // named consumer
		false,   // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", s.queue, err)
	}

	slog.Info("consuming commands", "queue", s.queue)

	return s.consume(ctx, deliveries)
}

// consume dispatches each delivery in its own goroutine: commands are
// independent requests, and a slow one (a lock wait, a large listing)
// must not delay the ones queued behind it. The amqp channel is safe for
// concurrent acks and publishes.
func (s *Server) consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", s.queue)
			}
			go s.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery runs one command end to end. Malformed envelopes are
// acked and logged; requeueing them would loop forever. Command errors
// travel back to the caller as an error reply, not a nack.
func (s *Server) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var envelope broker.Envelope
	if err := json.Unmarshal(delivery.Body, &envelope); err != nil {
		slog.Error("discarding malformed command", "error", err)
		s.ack(delivery)
		return
	}

	result, err := s.handler.Dispatch(ctx, envelope.Pattern, envelope.Data)

	var reply any
	switch {
	case err == nil:
		reply = result
	default:
		slog.Warn("command failed", "pattern", envelope.Pattern, "error", err)
		reply = errorReply(err)
	}

	if delivery.ReplyTo != "" {
		if err := s.reply(ctx, delivery, reply); err != nil {
			slog.Error("failed to publish reply",
				"pattern", envelope.Pattern,
				"reply_to", delivery.ReplyTo,
				"error", err,
			)
		}
	}

	s.ack(delivery)

	slog.Debug("command handled", "pattern", envelope.Pattern)
}

// errorReply translates a command failure into the error reply format.
// Caller mistakes get their own codes; everything else goes through the
// domain error mapping.
func errorReply(err error) dto.ErrorResponse {
	var unknown *ErrUnknownPattern
	switch {
	case errors.As(err, &unknown):
		return dto.NewErrorResponse("UNKNOWN_COMMAND", err.Error())
	case errors.Is(err, ErrMalformedPayload):
		return dto.NewErrorResponse("BAD_REQUEST", err.Error())
	default:
		return dto.MapDomainError(err)
	}
}

// reply serializes the result onto the caller's reply-to queue.
func (s *Server) reply(ctx context.Context, delivery amqp.Delivery, result any) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	return s.channel.PublishWithContext(ctx,
		"", // default exchange
		delivery.ReplyTo,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: delivery.CorrelationId,
			Body:          body,
		},
	)
}

func (s *Server) ack(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		slog.Error("failed to ack delivery", "error", err)
	}
}

// Close shuts down the channel and connection.
func (s *Server) Close() error {
	if err := s.channel.Close(); err != nil {
		s.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
