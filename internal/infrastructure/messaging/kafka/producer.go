package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/trialsync/trialsync/internal/config"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
	"github.com/trialsync/trialsync/pkg/types/common"
)

// ErrProducerClosed is returned after Close.
var ErrProducerClosed = apperrors.New(apperrors.ErrCodeInternal, "producer closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON-encoded domain events.  Safe for concurrent use;
// publishing after Close fails fast.
type Producer struct {
	writer WriterInterface
	topics Topics
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer builds a Producer over a real kafka.Writer.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: cfg.Timeout,
		RequiredAcks: kafka.RequireOne,
	}
	return NewProducerWithWriter(writer, NewTopics(cfg.TopicPrefix), logger)
}

// NewProducerWithWriter builds a Producer over any writer. Tests inject a
// fake here.
func NewProducerWithWriter(writer WriterInterface, topics Topics, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: writer, topics: topics, logger: logger.Named("kafka")}
}

// Publish sends one event to topic, keyed so all events for the same subject
// land on the same partition.
func (p *Producer) Publish(ctx context.Context, topic, key string, event common.Event) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "encoding event")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("event publish failed",
			logging.String("topic", topic),
			logging.String("event_type", event.Type),
			logging.Err(err))
		return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "publishing event")
	}

	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_type", event.Type),
		logging.String("key", key))
	return nil
}

// PublishMatch emits a match outcome event.
func (p *Producer) PublishMatch(ctx context.Context, eventType, subjectID string, payload common.Metadata) error {
	return p.Publish(ctx, p.topics.Matches(), subjectID, common.NewEvent(eventType, payload))
}

// PublishIntake emits a patient intake event.
func (p *Producer) PublishIntake(ctx context.Context, subjectID string, payload common.Metadata) error {
	return p.Publish(ctx, p.topics.Intake(), subjectID, common.NewEvent(EventPatientIntake, payload))
}

// PublishSync emits a registry sync event.
func (p *Producer) PublishSync(ctx context.Context, subjectID string, payload common.Metadata) error {
	return p.Publish(ctx, p.topics.Sync(), subjectID, common.NewEvent(EventTrialSynced, payload))
}

// Close flushes buffered messages and rejects further publishes.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
