package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/types/common"
)

type mockKafkaReader struct {
	fetchFunc  func(ctx context.Context) (kafka.Message, error)
	commitFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc  func() error
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.commitFunc != nil {
		return m.commitFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaReader) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaReader) Stats() kafka.ReaderStats {
	return kafka.ReaderStats{}
}

func newTestConsumer(r ReaderInterface, cfg ConsumerConfig) *Consumer {
	return &Consumer{
		reader:   r,
		config:   cfg,
		logger:   logging.NewNopLogger(),
		handlers: make(map[string]common.MessageHandler),
		metrics:  &consumerMetrics{},
	}
}

func newTestConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "citedisrupt-workers",
		Topics:  []string{TopicCompanyCompute},
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateConsumerConfig(newTestConsumerConfig()))

	noBrokers := newTestConsumerConfig()
	noBrokers.Brokers = nil
	assert.Error(t, ValidateConsumerConfig(noBrokers))

	noGroup := newTestConsumerConfig()
	noGroup.GroupID = ""
	assert.Error(t, ValidateConsumerConfig(noGroup))

	badOffset := newTestConsumerConfig()
	badOffset.AutoOffsetReset = "middle"
	assert.Error(t, ValidateConsumerConfig(badOffset))

	saslNoCreds := newTestConsumerConfig()
	saslNoCreds.SASLEnabled = true
	saslNoCreds.SASLMechanism = "PLAIN"
	assert.Error(t, ValidateConsumerConfig(saslNoCreds))
}

func TestSubscribeUnsubscribe(t *testing.T) {
	t.Parallel()

	c := newTestConsumer(&mockKafkaReader{}, newTestConsumerConfig())
	require.NoError(t, c.Subscribe(TopicCompanyCompute, func(ctx context.Context, msg *common.Message) error { return nil }))
	assert.Len(t, c.handlers, 1)

	require.NoError(t, c.Unsubscribe(TopicCompanyCompute))
	assert.Empty(t, c.handlers)
}

func TestStart_AlreadyRunning(t *testing.T) {
	t.Parallel()

	c := newTestConsumer(&mockKafkaReader{}, newTestConsumerConfig())
	c.running.Store(true)
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)
}

func TestConsumeLoop_DispatchAndCommit(t *testing.T) {
	t.Parallel()

	var fetched bool
	var mu sync.Mutex
	var committed []kafka.Message

	reader := &mockKafkaReader{
		fetchFunc: func(ctx context.Context) (kafka.Message, error) {
			mu.Lock()
			first := !fetched
			fetched = true
			mu.Unlock()
			if !first {
				<-ctx.Done()
				return kafka.Message{}, ctx.Err()
			}
			return kafka.Message{
				Topic:   TopicCompanyCompute,
				Offset:  7,
				Key:     []byte("acme"),
				Value:   []byte("job"),
				Headers: []kafka.Header{{Key: "trace_id", Value: []byte("run-1")}},
			}, nil
		},
		commitFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			mu.Lock()
			committed = append(committed, msgs...)
			mu.Unlock()
			return nil
		},
	}

	c := newTestConsumer(reader, newTestConsumerConfig())

	handled := make(chan *common.Message, 1)
	require.NoError(t, c.Subscribe(TopicCompanyCompute, func(ctx context.Context, msg *common.Message) error {
		handled <- msg
		return nil
	}))
	require.NoError(t, c.Start(context.Background()))

	select {
	case msg := <-handled:
		assert.Equal(t, "job", string(msg.Value))
		assert.Equal(t, "acme", string(msg.Key))
		assert.Equal(t, "run-1", msg.Headers["trace_id"])
		assert.Equal(t, int64(7), msg.Offset)
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}

	require.NoError(t, c.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, committed, 1)
	assert.Equal(t, int64(7), committed[0].Offset)
	assert.Equal(t, int64(1), c.Stats().Processed)
}

func TestConsumeLoop_NoHandlerStillCommits(t *testing.T) {
	t.Parallel()

	var fetched bool
	var mu sync.Mutex
	committed := make(chan kafka.Message, 1)

	reader := &mockKafkaReader{
		fetchFunc: func(ctx context.Context) (kafka.Message, error) {
			mu.Lock()
			first := !fetched
			fetched = true
			mu.Unlock()
			if !first {
				<-ctx.Done()
				return kafka.Message{}, ctx.Err()
			}
			return kafka.Message{Topic: "unrouted", Value: []byte("v")}, nil
		},
		commitFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			committed <- msgs[0]
			return nil
		},
	}

	c := newTestConsumer(reader, newTestConsumerConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	select {
	case m := <-committed:
		assert.Equal(t, "unrouted", m.Topic)
	case <-time.After(time.Second):
		t.Fatal("unrouted message was never committed")
	}
}

func TestProcessMessage_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	c := newTestConsumer(&mockKafkaReader{}, ConsumerConfig{
		RetryConfig: RetryConfig{MaxRetries: 2, RetryBackoff: time.Millisecond},
	})

	attempts := 0
	handler := func(ctx context.Context, msg *common.Message) error {
		attempts++
		if attempts < 2 {
			return assert.AnError
		}
		return nil
	}

	err := c.processMessage(context.Background(), &common.Message{Topic: "t"}, handler)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(1), c.Stats().Retried)
	assert.Equal(t, int64(1), c.Stats().Processed)
	assert.Equal(t, int64(0), c.Stats().Failed)
}

func TestProcessMessage_ExhaustedGoesToDeadLetter(t *testing.T) {
	t.Parallel()

	var captured []kafka.Message
	dlWriter := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = append(captured, msgs...)
			return nil
		},
	}

	c := newTestConsumer(&mockKafkaReader{}, ConsumerConfig{
		RetryConfig: RetryConfig{
			MaxRetries:      2,
			RetryBackoff:    time.Millisecond,
			DeadLetterTopic: DeadLetterTopic(TopicCompanyCompute),
		},
	})
	c.deadLetterProducer = newTestProducer(dlWriter)

	msg := &common.Message{
		Topic:   TopicCompanyCompute,
		Key:     []byte("acme"),
		Value:   []byte("job"),
		Headers: map[string]string{"trace_id": "run-1"},
	}
	handler := func(ctx context.Context, m *common.Message) error {
		return assert.AnError
	}

	err := c.processMessage(context.Background(), msg, handler)
	require.NoError(t, err)

	require.Len(t, captured, 1)
	assert.Equal(t, DeadLetterTopic(TopicCompanyCompute), captured[0].Topic)
	assert.Equal(t, "acme", string(captured[0].Key))
	assert.Equal(t, "job", string(captured[0].Value))

	headers := make(map[string]string, len(captured[0].Headers))
	for _, h := range captured[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, TopicCompanyCompute, headers["original_topic"])
	assert.Equal(t, "run-1", headers["trace_id"])
	assert.Equal(t, "2", headers["retries"])
	assert.NotEmpty(t, headers["error_message"])

	// The source message headers must not pick up the dead letter
	// annotations.
	assert.NotContains(t, msg.Headers, "original_topic")

	assert.Equal(t, int64(1), c.Stats().Failed)
	assert.Equal(t, int64(1), c.Stats().DeadLettered)
	assert.Equal(t, int64(2), c.Stats().Retried)
}

func TestProcessMessage_ContextCancelDuringBackoff(t *testing.T) {
	t.Parallel()

	c := newTestConsumer(&mockKafkaReader{}, ConsumerConfig{
		RetryConfig: RetryConfig{MaxRetries: 3, RetryBackoff: time.Hour},
	})

	ctx, cancel := context.WithCancel(context.Background())
	handler := func(ctx context.Context, m *common.Message) error {
		cancel()
		return assert.AnError
	}

	err := c.processMessage(ctx, &common.Message{Topic: "t"}, handler)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), c.Stats().DeadLettered)
}

func TestConsumerClose(t *testing.T) {
	t.Parallel()

	closes := 0
	reader := &mockKafkaReader{
		closeFunc: func() error {
			closes++
			return nil
		},
	}
	c := newTestConsumer(reader, newTestConsumerConfig())
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, closes)
}
