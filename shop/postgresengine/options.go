package postgresengine

import (
	"regexp"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithSchemaName sets the schema holding the users, items and purchases tables.
// The name must be a lowercase unquoted PostgreSQL identifier.
func WithSchemaName(schema string) Option {
	return func(s *Store) error {
		if !schemaNamePattern.MatchString(schema) {
			return ErrInvalidSchemaName
		}

		s.schema = schema

		return nil
	}
}

// WithSeedBatchSize sets how many rows one seeding INSERT carries.
func WithSeedBatchSize(size int) Option {
	return func(s *Store) error {
		if size <= 0 {
			return ErrInvalidSeedBatchSize
		}

		s.seedBatchSize = size

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing
// Info level: bootstrap, seeding and snapshot results
// Warn level: cleanup failures
// Error level: failed statements.
func WithLogger(logger shop.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// When set, it receives the per-statement logs with trace correlation instead of the plain logger.
func WithContextualLogger(logger shop.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives statement durations, row counts and database errors labeled by operation.
func WithMetrics(collector shop.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store. Every operation becomes a span.
func WithTracing(collector shop.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}
