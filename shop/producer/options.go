package producer

import (
	"github.com/AntonStoeckl/shop-load-generator/shop"
)

// loop holds what both loop kinds can be configured with.
type loop struct {
	factory          shop.EventFactory
	logger           shop.Logger
	contextualLogger shop.ContextualLogger
	metricsCollector shop.MetricsCollector
}

func newLoop(options []Option) (loop, error) {
	l := loop{factory: shop.NewEventFactory()}

	for _, option := range options {
		if err := option(&l); err != nil {
			return loop{}, err
		}
	}

	return l, nil
}

// Option defines a functional option for configuring a PurchaseLoop or a PageviewLoop.
type Option func(*loop) error

// WithEventFactory replaces the default EventFactory, e.g. with one using a seeded random source.
func WithEventFactory(factory shop.EventFactory) Option {
	return func(l *loop) error {
		l.factory = factory
		return nil
	}
}

// WithLogger sets the logger.
//
// Debug level: every emitted record
// Warn level: failed publishes and inserts.
func WithLogger(logger shop.Logger) Option {
	return func(l *loop) error {
		l.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger, it takes precedence over the plain logger.
func WithContextualLogger(logger shop.ContextualLogger) Option {
	return func(l *loop) error {
		l.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector shop.MetricsCollector) Option {
	return func(l *loop) error {
		l.metricsCollector = collector
		return nil
	}
}
