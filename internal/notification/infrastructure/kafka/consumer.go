package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/idempotency"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/outbox"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/tracing"
)

const maxAttempts = 5

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Handler interface {
	Handle(ctx context.Context, eventID int64, eventType string, payload []byte) error
}

type Consumer struct {
	log     *slog.Logger
	reader  Reader
	handler Handler
	idem    *idempotency.Store
	tracer  trace.Tracer
	backoff time.Duration
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, handler Handler, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newConsumer(log, r, handler, idem)
}

func newConsumer(log *slog.Logger, r Reader, handler Handler, idem *idempotency.Store) *Consumer {
	return &Consumer{
		log:     log.With("component", "notification-consumer"),
		reader:  r,
		handler: handler,
		idem:    idem,
		tracer:  otel.Tracer("notification-consumer"),
		backoff: 200 * time.Millisecond,
	}
}

// Run consumes until ctx is cancelled. A message is committed once it has
// been handled, rejected as malformed, or recognised as a duplicate.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.consume(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) consume(ctx context.Context, msg kafka.Message) error {
	eventType := tracing.HeaderValue(msg.Headers, outbox.EventTypeHeader)
	eventID, err := strconv.ParseInt(tracing.HeaderValue(msg.Headers, outbox.EventIDHeader), 10, 64)
	if err != nil {
		c.log.Error("message without event id skipped", "partition", msg.Partition, "offset", msg.Offset)
		return nil
	}

	key := c.idem.Key(msg.Topic, strconv.FormatInt(eventID, 10))
	done, err := c.idem.Done(ctx, key)
	if err != nil {
		// Postgres still de-duplicates on the event id.
		c.log.Warn("idempotency check failed", "key", key, "err", err)
	}
	if done {
		c.log.Info("duplicate message skipped", "key", key)
		return nil
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "Consume "+eventType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.Int64("event.id", eventID), attribute.String("event.type", eventType)))
	defer span.End()

	// The key is recorded only once the event is settled, so a crash
	// mid-handling leaves the redelivered message eligible.
	err = c.handleWithRetry(msgCtx, eventID, eventType, msg.Value)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrValidation):
		c.log.Error("malformed event dropped", "event_id", eventID, "type", eventType, "err", err)
		span.RecordError(err)
	default:
		span.RecordError(err)
		return fmt.Errorf("handle event %d: %w", eventID, err)
	}
	if err := c.idem.Mark(ctx, key); err != nil {
		c.log.Warn("record idempotency key failed", "key", key, "err", err)
	}
	return nil
}

func (c *Consumer) handleWithRetry(ctx context.Context, eventID int64, eventType string, payload []byte) error {
	delay := c.backoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = c.handler.Handle(ctx, eventID, eventType, payload); err == nil || errors.Is(err, apperr.ErrValidation) {
			return err
		}
		c.log.Warn("handle failed", "event_id", eventID, "attempt", attempt, "err", err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
