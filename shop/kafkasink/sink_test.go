package kafkasink

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shop-load-generator/shop"
	. "github.com/AntonStoeckl/shop-load-generator/testutil/helper" //nolint:revive
)

type writerFake struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *writerFake) WriteMessages(_ context.Context, messages ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	w.messages = append(w.messages, messages...)

	return nil
}

func (w *writerFake) Close() error {
	w.closed = true
	return nil
}

func header(message kafka.Message, key string) string {
	for _, h := range message.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}

	return ""
}

func Test_Sink_Publish_WritesJSONWithKeyAndHeaders(t *testing.T) {
	// setup
	writer := &writerFake{}
	sink, err := NewSink(writer)
	require.NoError(t, err)

	pageview := shop.Pageview{UserID: 17, URL: "/products/3", Channel: shop.ChannelSocial, ReceivedAt: 1700000000}

	// act
	err = sink.Publish(context.Background(), "pageviews", []byte("17"), pageview)

	// assert
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	message := writer.messages[0]
	assert.Equal(t, "pageviews", message.Topic)
	assert.Equal(t, []byte("17"), message.Key)
	assert.JSONEq(t, `{"user_id":17,"url":"/products/3","channel":"social","received_at":1700000000}`, string(message.Value))
	assert.Equal(t, "application/json", header(message, "content-type"))

	_, parseErr := uuid.Parse(header(message, "event_id"))
	assert.NoError(t, parseErr)
}

func Test_Sink_Publish_EveryMessageGetsItsOwnEventID(t *testing.T) {
	writer := &writerFake{}
	sink, err := NewSink(writer)
	require.NoError(t, err)

	for range 3 {
		require.NoError(t, sink.Publish(context.Background(), "pageviews", []byte("1"), shop.Pageview{}))
	}

	ids := map[string]bool{}
	for _, message := range writer.messages {
		ids[header(message, "event_id")] = true
	}

	assert.Len(t, ids, 3)
}

func Test_Sink_Publish_ReportsWriterAndEncodingErrors(t *testing.T) {
	// setup
	brokerDown := errors.New("dial tcp: connection refused")
	metricsSpy := NewMetricsCollectorSpy()
	sink, err := NewSink(&writerFake{err: brokerDown}, WithMetrics(metricsSpy))
	require.NoError(t, err)

	// act
	writeErr := sink.Publish(context.Background(), "pageviews", nil, shop.Pageview{})
	marshalErr := sink.Publish(context.Background(), "pageviews", nil, make(chan int))

	// assert
	assert.ErrorIs(t, writeErr, ErrWriteFailed)
	assert.ErrorIs(t, writeErr, brokerDown)
	assert.ErrorIs(t, marshalErr, ErrMarshalFailed)
	assert.Equal(t, 1, metricsSpy.CountCounterRecords("loadgen_sink_messages_total", map[string]string{
		"sink": "kafka", "topic": "pageviews", "status": "error",
	}))
}

func Test_Sink_ReportDelivery_LogsAndCountsAsyncOutcomes(t *testing.T) {
	// setup
	logSpy := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy()
	sink, err := NewSink(&writerFake{}, WithLogger(NewSpyLogger(logSpy)), WithMetrics(metricsSpy))
	require.NoError(t, err)

	batch := []kafka.Message{{Topic: "pageviews"}, {Topic: "pageviews"}}

	// act
	sink.reportDelivery(batch, nil)
	sink.reportDelivery(batch, errors.New("leader not available"))
	sink.reportDelivery(nil, nil)

	// assert
	assert.Equal(t, 2, metricsSpy.CountCounterRecords("loadgen_sink_messages_total", map[string]string{"status": "success"}))
	assert.Equal(t, 2, metricsSpy.CountCounterRecords("loadgen_sink_messages_total", map[string]string{"status": "error"}))
	assert.True(t, logSpy.HasLogWithAttr(slog.LevelError, "kafka delivery failed", "message_count", "2"))
}

func Test_Dial_ConfiguresAnAsyncHashBalancedWriter(t *testing.T) {
	_, err := Dial(nil)
	assert.ErrorIs(t, err, ErrNoBrokers)

	sink, err := Dial([]string{"localhost:9092"})
	require.NoError(t, err)

	writer, ok := sink.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, writer.Async)
	assert.IsType(t, &kafka.Hash{}, writer.Balancer)
	assert.NotNil(t, writer.Completion)
	assert.Equal(t, "localhost:9092", writer.Addr.String())
}

func Test_Sink_Close_ClosesTheWriter(t *testing.T) {
	writer := &writerFake{}
	sink, err := NewSink(writer)
	require.NoError(t, err)

	assert.NoError(t, sink.Close())
	assert.True(t, writer.closed)

	_, err = NewSink(nil)
	assert.ErrorIs(t, err, ErrNilWriter)
}
