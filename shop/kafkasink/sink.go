package kafkasink

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const (
	headerEventID        = "event_id"
	headerContentType    = "content-type"
	contentTypeJSON      = "application/json"
	defaultBatchTimeout  = 10 * time.Millisecond
	metricMessages       = "loadgen_sink_messages_total"
	labelSink            = "sink"
	labelTopic           = "topic"
	labelStatus          = "status"
	sinkName             = "kafka"
	logMsgDeliveryFailed = "kafka delivery failed"
	logMsgWriterClosed   = "kafka writer closed"
	logAttrTopic         = "topic"
	logAttrMessageCount  = "message_count"
	logAttrError         = "error"
)

var ErrNoBrokers = errors.New("at least one broker address is required")
var ErrNilWriter = errors.New("kafka writer must not be nil")
var ErrMarshalFailed = errors.New("encoding message value failed")
var ErrWriteFailed = errors.New("writing kafka message failed")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer is the part of *kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

// Option defines a functional option for configuring Sink.
type Option func(*Sink) error

// WithLogger sets the logger for delivery failures.
func WithLogger(logger shop.Logger) Option {
	return func(s *Sink) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector. Delivered and failed messages are counted per topic.
func WithMetrics(collector shop.MetricsCollector) Option {
	return func(s *Sink) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithBatchTimeout bounds how long the async writer holds messages before flushing a batch.
func WithBatchTimeout(timeout time.Duration) Option {
	return func(s *Sink) error {
		s.batchTimeout = timeout
		return nil
	}
}

// Sink publishes JSON messages to Kafka. It is safe for concurrent use.
type Sink struct {
	writer           Writer
	batchTimeout     time.Duration
	logger           shop.Logger
	metricsCollector shop.MetricsCollector
}

// Dial creates a Sink writing asynchronously to the given brokers.
// No connection is opened until the first message is flushed.
func Dial(brokers []string, options ...Option) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	s, err := newSink(options)
	if err != nil {
		return nil, err
	}

	s.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		Async:                  true,
		BatchTimeout:           s.batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Completion:             s.reportDelivery,
	}

	return s, nil
}

// NewSink creates a Sink on top of an existing writer.
func NewSink(writer Writer, options ...Option) (*Sink, error) {
	if writer == nil {
		return nil, ErrNilWriter
	}

	s, err := newSink(options)
	if err != nil {
		return nil, err
	}

	s.writer = writer

	return s, nil
}

func newSink(options []Option) (*Sink, error) {
	s := &Sink{batchTimeout: defaultBatchTimeout}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Publish encodes value as JSON and hands it to the writer with a fresh event id header.
// With the async writer, a nil error means the message was queued, not delivered.
func (s *Sink) Publish(ctx context.Context, topic string, key []byte, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return errors.Join(ErrMarshalFailed, err)
	}

	eventID, err := uuid.NewV7()
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: payload,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(eventID.String())},
			{Key: headerContentType, Value: []byte(contentTypeJSON)},
		},
	}

	if err = s.writer.WriteMessages(ctx, message); err != nil {
		s.count(topic, shop.StatusError, 1)
		return errors.Join(ErrWriteFailed, err)
	}

	return nil
}

// Close flushes queued messages and closes the writer.
func (s *Sink) Close() error {
	err := s.writer.Close()

	if s.logger != nil {
		s.logger.Info(logMsgWriterClosed)
	}

	return err
}

// reportDelivery is the async writer's completion callback.
func (s *Sink) reportDelivery(messages []kafka.Message, err error) {
	if len(messages) == 0 {
		return
	}

	topic := messages[0].Topic

	if err != nil {
		s.count(topic, shop.StatusError, len(messages))

		if s.logger != nil {
			s.logger.Error(logMsgDeliveryFailed, logAttrTopic, topic, logAttrMessageCount, len(messages), logAttrError, err.Error())
		}

		return
	}

	s.count(topic, shop.StatusSuccess, len(messages))
}

func (s *Sink) count(topic, status string, n int) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelSink: sinkName, labelTopic: topic, labelStatus: status}
	for range n {
		s.metricsCollector.IncrementCounter(metricMessages, labels)
	}
}
