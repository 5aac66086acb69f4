package scheduler

import (
	"time"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

// Option defines a functional option for configuring a Driver.
type Option func(*Driver) error

// WithLogger sets the logger for the Driver.
//
// Debug level: every tick with its duration
// Info level: start and stop of the loop with final statistics
// Error level: failed ticks and recovered panics.
func WithLogger(logger shop.Logger) Option {
	return func(d *Driver) error {
		d.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Driver.
// It takes precedence over the plain logger for tick-level messages.
func WithContextualLogger(logger shop.ContextualLogger) Option {
	return func(d *Driver) error {
		d.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Driver.
// It receives tick counts and durations labeled with the loop name and status, plus skipped tick counts.
func WithMetrics(collector shop.MetricsCollector) Option {
	return func(d *Driver) error {
		d.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Driver. Every tick becomes a span.
func WithTracing(collector shop.TracingCollector) Option {
	return func(d *Driver) error {
		d.tracingCollector = collector
		return nil
	}
}

// WithTickTimeout bounds the duration of every action call. Zero disables the bound.
func WithTickTimeout(timeout time.Duration) Option {
	return func(d *Driver) error {
		if timeout < 0 {
			return ErrInvalidTickTimeout
		}

		d.tickTimeout = timeout

		return nil
	}
}
