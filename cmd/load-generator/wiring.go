package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AntonStoeckl/shop-load-generator/shell/config"
	"github.com/AntonStoeckl/shop-load-generator/shell/generator"
	"github.com/AntonStoeckl/shop-load-generator/shop"
	"github.com/AntonStoeckl/shop-load-generator/shop/amqpsink"
	"github.com/AntonStoeckl/shop-load-generator/shop/cdc"
	"github.com/AntonStoeckl/shop-load-generator/shop/kafkasink"
	"github.com/AntonStoeckl/shop-load-generator/shop/oteladapters"
	"github.com/AntonStoeckl/shop-load-generator/shop/postgresengine"
	"github.com/AntonStoeckl/shop-load-generator/shop/promadapters"
	"github.com/AntonStoeckl/shop-load-generator/shop/seeding"
)

const instrumentationName = "github.com/AntonStoeckl/shop-load-generator"

// observability bundles whatever the configured metrics backend provides.
type observability struct {
	logger           *slog.Logger
	contextualLogger shop.ContextualLogger
	metricsCollector shop.MetricsCollector
	tracingCollector shop.TracingCollector
	closers          []func(ctx context.Context) error
}

func setupObservability(ctx context.Context, cfg config.Config, logger *slog.Logger) (*observability, error) {
	obs := &observability{logger: logger}

	switch cfg.Metrics.Backend {
	case config.MetricsPrometheus:
		collector := promadapters.NewMetricsCollector()
		server := collector.NewServer(cfg.Metrics.Listen)

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err.Error())
			}
		}()

		obs.metricsCollector = collector
		obs.closers = append(obs.closers, server.Shutdown)

		logger.Info("serving prometheus metrics", "listen", cfg.Metrics.Listen)

	case config.MetricsOTel:
		providers, err := config.NewOTelProviders(ctx, cfg.OTel)
		if err != nil {
			return nil, err
		}

		obs.metricsCollector = oteladapters.NewMetricsCollector(providers.MeterProvider.Meter(instrumentationName))
		obs.tracingCollector = oteladapters.NewTracingCollector(providers.TracerProvider.Tracer(instrumentationName))
		obs.contextualLogger = oteladapters.NewBridgeLogger(instrumentationName, providers.LoggerProvider)
		obs.closers = append(obs.closers, providers.Shutdown)
	}

	return obs, nil
}

func (o *observability) shutdown(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, closer := range o.closers {
		if err := closer(ctx); err != nil {
			logger.Warn("shutting down observability failed", "error", err.Error())
		}
	}
}

func (o *observability) generatorOptions() []generator.Option {
	options := []generator.Option{generator.WithLogger(o.logger)}

	if o.contextualLogger != nil {
		options = append(options, generator.WithContextualLogger(o.contextualLogger))
	}

	if o.metricsCollector != nil {
		options = append(options, generator.WithMetrics(o.metricsCollector))
	}

	if o.tracingCollector != nil {
		options = append(options, generator.WithTracing(o.tracingCollector))
	}

	return options
}

func (o *observability) storeOptions(schema string) []postgresengine.Option {
	options := []postgresengine.Option{postgresengine.WithSchemaName(schema), postgresengine.WithLogger(o.logger)}

	if o.contextualLogger != nil {
		options = append(options, postgresengine.WithContextualLogger(o.contextualLogger))
	}

	if o.metricsCollector != nil {
		options = append(options, postgresengine.WithMetrics(o.metricsCollector))
	}

	if o.tracingCollector != nil {
		options = append(options, postgresengine.WithTracing(o.tracingCollector))
	}

	return options
}

func openStore(ctx context.Context, cfg config.Config, obs *observability) (*postgresengine.Store, error) {
	options := obs.storeOptions(cfg.Postgres.Schema)

	switch cfg.Postgres.Adapter {
	case config.AdapterSQL:
		db, err := config.OpenSQLDB(cfg.Postgres)
		if err != nil {
			return nil, err
		}

		return postgresengine.NewStoreFromSQLDB(db, options...)

	case config.AdapterSQLX:
		db, err := config.OpenSQLX(cfg.Postgres)
		if err != nil {
			return nil, err
		}

		return postgresengine.NewStoreFromSQLX(db, options...)

	default:
		pool, err := config.NewPGXPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}

		return postgresengine.NewStoreFromPGXPool(pool, options...)
	}
}

func openSink(cfg config.Config, obs *observability) (generator.Sink, error) {
	switch cfg.Sink.Kind {
	case config.SinkAMQP:
		options := []amqpsink.Option{amqpsink.WithLogger(obs.logger)}
		if obs.metricsCollector != nil {
			options = append(options, amqpsink.WithMetrics(obs.metricsCollector))
		}

		return amqpsink.Dial(cfg.AMQP.URL, options...)

	case config.SinkKafka:
		options := []kafkasink.Option{kafkasink.WithLogger(obs.logger), kafkasink.WithBatchTimeout(cfg.Kafka.BatchTimeout)}
		if obs.metricsCollector != nil {
			options = append(options, kafkasink.WithMetrics(obs.metricsCollector))
		}

		return kafkasink.Dial(cfg.Kafka.Brokers, options...)

	default:
		return nil, fmt.Errorf("%w: unknown sink kind %q", config.ErrInvalidConfig, cfg.Sink.Kind)
	}
}

func seedConfig(cfg config.Config) seeding.Config {
	return seeding.Config{
		Users:        cfg.Seed.Users,
		Items:        cfg.Seed.Items,
		PriceMin:     shop.Cents(int64(cfg.Seed.PriceMin) * 100),
		PriceMax:     shop.Cents(int64(cfg.Seed.PriceMax) * 100),
		InventoryMin: cfg.Seed.InventoryMin,
		InventoryMax: cfg.Seed.InventoryMax,
	}
}

func generatorConfig(cfg config.Config) generator.Config {
	return generator.Config{
		Seed:               seedConfig(cfg),
		SeedEnabled:        cfg.Seed.Enabled,
		PurchasesPerSecond: cfg.Loops.PurchasesPerSecond,
		PageviewsPerSecond: cfg.Loops.PageviewsPerSecond,
		TickTimeout:        cfg.Loops.TickTimeout,
		Topic:              cfg.Sink.Topic,
	}
}

func connectorConfig(cfg config.Config) (cdc.ConnectorConfig, error) {
	return cdc.ConnectorConfigFromDSN(cfg.CDC.ConnectorName, cfg.Postgres.DSN, cfg.Postgres.Schema)
}
