package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"github.com/trialsync/trialsync/internal/config"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/pkg/types/common"
)

// Handler processes one decoded event. Returning an error leaves the message
// uncommitted so it is redelivered.
type Handler func(ctx context.Context, event common.Event) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a fetch/handle/commit loop over one topic.
type Consumer struct {
	reader ReaderInterface
	logger logging.Logger
}

// NewConsumer builds a Consumer over a real kafka.Reader in the configured
// consumer group.
func NewConsumer(cfg config.KafkaConfig, topic string, logger logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   topic,
	})
	return NewConsumerWithReader(reader, logger)
}

// NewConsumerWithReader builds a Consumer over any reader. Tests inject a
// fake here.
func NewConsumerWithReader(reader ReaderInterface, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consumer{reader: reader, logger: logger.Named("kafka_consumer")}
}

// Run consumes until the context is cancelled or the reader closes.
// Undecodable messages are committed and skipped; handler failures leave the
// message uncommitted.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		var event common.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn("skipping undecodable message",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		if err := handle(ctx, event); err != nil {
			c.logger.Error("event handling failed",
				logging.String("event_type", event.Type),
				logging.Err(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed", logging.Int64("offset", msg.Offset), logging.Err(err))
		}
	}
}

// Close shuts the underlying reader down.
func (c *Consumer) Close() error { return c.reader.Close() }
