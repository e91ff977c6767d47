package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer publishes relayed outbox rows. Messages carry their own topic and
// are hashed on the order id so one order's events stay on one partition.
type Writer struct {
	log *slog.Logger
	*kafka.Writer
}

func NewWriter(log *slog.Logger, brokers []string) *Writer {
	return &Writer{
		log: log,
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := w.Writer.WriteMessages(ctx, msgs...); err != nil {
		w.log.WarnContext(ctx, "kafka write failed", "messages", len(msgs), "err", err)
		return err
	}
	return nil
}

func (w *Writer) Close() error {
	stats := w.Writer.Stats()
	w.log.Info("kafka writer closing", "messages", stats.Messages, "errors", stats.Errors)
	return w.Writer.Close()
}
