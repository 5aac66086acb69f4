package generator

import (
	"github.com/AntonStoeckl/shop-load-generator/shop"
	"github.com/AntonStoeckl/shop-load-generator/shop/cdc"
)

// Option defines a functional option for configuring Generator.
type Option func(*Generator) error

// WithLogger sets the logger used by the generator and everything it builds.
func WithLogger(logger shop.Logger) Option {
	return func(g *Generator) error {
		g.logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger handed to loops and drivers.
func WithContextualLogger(logger shop.ContextualLogger) Option {
	return func(g *Generator) error {
		g.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector handed to loops and drivers.
func WithMetrics(collector shop.MetricsCollector) Option {
	return func(g *Generator) error {
		g.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector handed to the drivers.
func WithTracing(collector shop.TracingCollector) Option {
	return func(g *Generator) error {
		g.tracingCollector = collector
		return nil
	}
}

// WithEventFactory replaces the default event factory, mainly for deterministic tests.
func WithEventFactory(factory shop.EventFactory) Option {
	return func(g *Generator) error {
		g.factory = &factory
		return nil
	}
}

// WithConnectorRegistration registers the CDC connector during Prepare.
// When required is false, registration runs in the background and its failure is only logged.
func WithConnectorRegistration(registrar ConnectorRegistrar, connector cdc.ConnectorConfig, required bool) Option {
	return func(g *Generator) error {
		if registrar == nil {
			return ErrNilRegistrar
		}

		g.registrar = registrar
		g.connector = connector
		g.connectorRequired = required

		return nil
	}
}
