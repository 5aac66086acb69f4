package config

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const metricExportInterval = 5 * time.Second

var ErrCreatingOTelProvidersFailed = errors.New("creating opentelemetry providers failed")

// OTelProviders holds the providers exporting to an OTLP collector.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
}

// NewOTelProviders creates OTLP gRPC exporters for traces, metrics and logs and installs the
// tracer and meter providers globally.
func NewOTelProviders(ctx context.Context, cfg OTelConfig) (*OTelProviders, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)))
	if err != nil {
		return nil, errors.Join(ErrCreatingOTelProvidersFailed, err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.TraceEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, errors.Join(ErrCreatingOTelProvidersFailed, err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.MetricEndpoint), otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, errors.Join(ErrCreatingOTelProvidersFailed, err)
	}

	logExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpoint(cfg.LogEndpoint), otlploggrpc.WithInsecure())
	if err != nil {
		return nil, errors.Join(ErrCreatingOTelProvidersFailed, err)
	}

	providers := &OTelProviders{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter), sdktrace.WithResource(res)),
		MeterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricExportInterval))),
			sdkmetric.WithResource(res),
		),
		LoggerProvider: sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		),
	}

	otel.SetTracerProvider(providers.TracerProvider)
	otel.SetMeterProvider(providers.MeterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return providers, nil
}

// Shutdown flushes and stops all providers, collecting every error.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
		p.LoggerProvider.Shutdown(ctx),
	)
}
