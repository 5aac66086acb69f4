package oteladapters

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"
)

// NewBridgeLogger returns a *slog.Logger whose records go to the OpenTelemetry LoggerProvider.
// Records logged with a context carrying a span get its trace and span ids.
// It satisfies both shop.Logger and shop.ContextualLogger.
func NewBridgeLogger(name string, provider log.LoggerProvider) *slog.Logger {
	if provider == nil {
		return otelslog.NewLogger(name)
	}

	return otelslog.NewLogger(name, otelslog.WithLoggerProvider(provider))
}
