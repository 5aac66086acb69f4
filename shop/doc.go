// Package shop provides the domain model of the shop load generator.
//
// It contains the records the generator emits (Pageview, Purchase), the seed rows for the
// relational store (Item, User), a fixed-point Money type and the EventFactory that builds one
// synthetic record per call from a random source and the current time.
//
// It also defines the dependency-free observability interfaces (Logger, ContextualLogger,
// MetricsCollector, TracingCollector) that all other packages accept through functional options.
package shop
