// Package amqpsink publishes load generator events to RabbitMQ.
//
// Each topic maps to a durable queue of the same name, declared the first time the topic is used,
// and messages go through the default exchange with the topic as routing key.
package amqpsink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/streadway/amqp"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const (
	defaultExchange     = ""
	headerKey           = "key"
	contentTypeJSON     = "application/json"
	metricMessages      = "loadgen_sink_messages_total"
	labelSink           = "sink"
	labelTopic          = "topic"
	labelStatus         = "status"
	sinkName            = "amqp"
	logMsgQueueDeclared = "amqp queue declared"
	logMsgPublishFailed = "amqp publish failed"
	logAttrQueue        = "queue"
	logAttrError        = "error"
)

var ErrNilChannel = errors.New("amqp channel must not be nil")
var ErrMarshalFailed = errors.New("encoding message value failed")
var ErrDeclareQueueFailed = errors.New("declaring queue failed")
var ErrPublishFailed = errors.New("publishing amqp message failed")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Channel is the part of *amqp.Channel the sink uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Option defines a functional option for configuring Sink.
type Option func(*Sink)

// WithLogger sets the logger for queue declarations and publish failures.
func WithLogger(logger shop.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector. Published and failed messages are counted per topic.
func WithMetrics(collector shop.MetricsCollector) Option {
	return func(s *Sink) {
		s.metricsCollector = collector
	}
}

// Sink publishes JSON messages to RabbitMQ queues. It is safe for concurrent use.
//
// An amqp channel must not be used from several goroutines at once, so every publish holds the mutex.
type Sink struct {
	mu               sync.Mutex
	channel          Channel
	connection       *amqp.Connection
	declared         map[string]bool
	now              func() time.Time
	logger           shop.Logger
	metricsCollector shop.MetricsCollector
}

// Dial connects to url and opens a channel.
func Dial(url string, options ...Option) (*Sink, error) {
	connection, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := connection.Channel()
	if err != nil {
		_ = connection.Close() // the channel error is the one worth reporting

		return nil, fmt.Errorf("failed to create a channel: %w", err)
	}

	s, err := NewSink(channel, options...)
	if err != nil {
		_ = connection.Close()

		return nil, err
	}

	s.connection = connection

	return s, nil
}

// NewSink creates a Sink on an open channel.
func NewSink(channel Channel, options ...Option) (*Sink, error) {
	if channel == nil {
		return nil, ErrNilChannel
	}

	s := &Sink{
		channel:  channel,
		declared: make(map[string]bool),
		now:      time.Now,
	}

	for _, option := range options {
		option(s)
	}

	return s, nil
}

// Publish encodes value as JSON and publishes it as a persistent message to the topic's queue.
// The key travels in the "key" header, the message id is a fresh UUID.
func (s *Sink) Publish(_ context.Context, topic string, key []byte, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return errors.Join(ErrMarshalFailed, err)
	}

	messageID, err := uuid.NewV7()
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.declareOnce(topic); err != nil {
		s.count(topic, shop.StatusError)
		return err
	}

	err = s.channel.Publish(defaultExchange, topic, false, false, amqp.Publishing{
		Headers:      amqp.Table{headerKey: string(key)},
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID.String(),
		Timestamp:    s.now(),
		Body:         body,
	})
	if err != nil {
		s.count(topic, shop.StatusError)

		if s.logger != nil {
			s.logger.Error(logMsgPublishFailed, logAttrQueue, topic, logAttrError, err.Error())
		}

		return errors.Join(ErrPublishFailed, err)
	}

	s.count(topic, shop.StatusSuccess)

	return nil
}

// Close closes the channel and, when the sink dialed it, the connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.channel.Close()

	if s.connection != nil {
		err = errors.Join(err, s.connection.Close())
	}

	return err
}

// declareOnce declares a durable queue for topic. Callers hold the mutex.
func (s *Sink) declareOnce(topic string) error {
	if s.declared[topic] {
		return nil
	}

	if _, err := s.channel.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		return errors.Join(ErrDeclareQueueFailed, err)
	}

	s.declared[topic] = true

	if s.logger != nil {
		s.logger.Info(logMsgQueueDeclared, logAttrQueue, topic)
	}

	return nil
}

func (s *Sink) count(topic, status string) {
	if s.metricsCollector != nil {
		s.metricsCollector.IncrementCounter(metricMessages, map[string]string{labelSink: sinkName, labelTopic: topic, labelStatus: status})
	}
}
