package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	segmentio "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialsync/trialsync/internal/infrastructure/messaging/kafka"
	"github.com/trialsync/trialsync/pkg/types/common"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []segmentio.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...segmentio.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestTopics(t *testing.T) {
	t.Parallel()

	topics := kafka.NewTopics("trialsync")
	assert.Equal(t, "trialsync.matches", topics.Matches())
	assert.Equal(t, "trialsync.intake", topics.Intake())
	assert.Equal(t, "trialsync.sync", topics.Sync())

	defaulted := kafka.NewTopics("")
	assert.Equal(t, "trialsync.matches", defaulted.Matches())
}

func TestPublishMatch(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	p := kafka.NewProducerWithWriter(writer, kafka.NewTopics("trialsync"), nil)

	err := p.PublishMatch(context.Background(), kafka.EventPatientMatched, "patient-1",
		common.Metadata{"current": 3, "future": 1})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "trialsync.matches", msg.Topic)
	assert.Equal(t, "patient-1", string(msg.Key))

	var event common.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, kafka.EventPatientMatched, event.Type)
	assert.False(t, event.ID.IsZero())
	assert.EqualValues(t, 3, event.Payload["current"])
}

func TestPublishWriterError(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{err: errors.New("broker down")}
	p := kafka.NewProducerWithWriter(writer, kafka.NewTopics("trialsync"), nil)

	err := p.PublishSync(context.Background(), "NCT01", nil)
	assert.Error(t, err)
}

func TestPublishAfterClose(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	p := kafka.NewProducerWithWriter(writer, kafka.NewTopics("trialsync"), nil)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)

	err := p.PublishIntake(context.Background(), "patient-1", nil)
	assert.ErrorIs(t, err, kafka.ErrProducerClosed)

	// Double close is harmless.
	assert.NoError(t, p.Close())
}
