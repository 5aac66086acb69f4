package helper

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

// SpySpanRecord represents a finished span.
type SpySpanRecord struct {
	Name   string
	Status string
	Attrs  map[string]string
}

// TracingCollectorSpy is a TracingCollector implementation that captures finished spans.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []SpySpanRecord
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{spans: make([]SpySpanRecord, 0)}
}

// StartSpan implements the TracingCollector interface.
func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, shop.SpanContext) {
	return ctx, &SpanContextSpy{name: name, attrs: maps.Clone(attrs)}
}

// FinishSpan records the span.
func (s *TracingCollectorSpy) FinishSpan(spanCtx shop.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpanContextSpy)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := maps.Clone(span.attrs)
	if all == nil {
		all = make(map[string]string)
	}
	maps.Copy(all, attrs)

	s.spans = append(s.spans, SpySpanRecord{Name: span.name, Status: status, Attrs: all})
}

// Spans returns a copy of the finished spans.
func (s *TracingCollectorSpy) Spans() []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	spans := make([]SpySpanRecord, len(s.spans))
	copy(spans, s.spans)

	return spans
}

// SpanContextSpy is the span handle handed out by TracingCollectorSpy.
type SpanContextSpy struct {
	name   string
	status string
	attrs  map[string]string
}

// SetStatus implements the SpanContext interface.
func (s *SpanContextSpy) SetStatus(status string) {
	s.status = status
}

// AddAttribute implements the SpanContext interface.
func (s *SpanContextSpy) AddAttribute(key, value string) {
	if s.attrs == nil {
		s.attrs = make(map[string]string)
	}
	s.attrs[key] = value
}
