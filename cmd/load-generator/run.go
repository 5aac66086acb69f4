package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/AntonStoeckl/shop-load-generator/shell/config"
	"github.com/AntonStoeckl/shop-load-generator/shell/generator"
	"github.com/AntonStoeckl/shop-load-generator/shop/cdc"
	"github.com/AntonStoeckl/shop-load-generator/shop/seeding"
)

const shutdownTimeout = 10 * time.Second

func run(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg.Log, os.Stderr)

	obs, err := setupObservability(ctx, cfg, logger)
	if err != nil {
		logger.Error("setting up observability failed", "error", err.Error())
		return err
	}
	defer obs.shutdown(logger)

	store, err := openStore(ctx, cfg, obs)
	if err != nil {
		logger.Error("opening store failed", "error", err.Error())
		return err
	}

	sink, err := openSink(cfg, obs)
	if err != nil {
		logger.Error("opening publish sink failed", "error", err.Error())
		_ = store.Close()

		return err
	}

	options := obs.generatorOptions()
	if cfg.CDC.Enabled {
		registrar, connector, regErr := newRegistrar(cfg, logger)
		if regErr != nil {
			_ = sink.Close()
			_ = store.Close()

			return regErr
		}

		options = append(options, generator.WithConnectorRegistration(registrar, connector, cfg.CDC.Required))
	}

	gen, err := generator.New(store, sink, generatorConfig(cfg), options...)
	if err != nil {
		_ = sink.Close()
		_ = store.Close()

		return err
	}
	defer func() { _ = gen.Close() }() // errors are logged by Close

	stopListening := gen.Coordinator().ListenForSignals()
	defer stopListening()

	if err = gen.Prepare(gen.Coordinator().Context()); err != nil {
		logger.Error("startup failed", "error", err.Error())
		return err
	}

	return gen.Run(ctx)
}

func seed(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg.Log, os.Stderr)
	obs := &observability{logger: logger}

	store, err := openStore(ctx, cfg, obs)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	seeder, err := seeding.NewGenerator(seedConfig(cfg))
	if err != nil {
		return err
	}

	steps := []func(context.Context) error{
		store.Bootstrap,
		func(ctx context.Context) error { return store.InsertItems(ctx, seeder.Items()) },
		func(ctx context.Context) error { return store.InsertUsers(ctx, seeder.Users()) },
	}

	for _, step := range steps {
		if err = step(ctx); err != nil {
			logger.Error("seeding failed", "error", err.Error())
			return err
		}
	}

	logger.Info("seed data inserted", "users", cfg.Seed.Users, "items", cfg.Seed.Items, "schema", store.Schema())

	return nil
}

func registerConnector(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg.Log, os.Stderr)

	registrar, connector, err := newRegistrar(cfg, logger)
	if err != nil {
		return err
	}

	if err = registrar.Register(ctx, connector); err != nil {
		logger.Error("registering connector failed", "error", err.Error())
		return err
	}

	return nil
}

func newRegistrar(cfg config.Config, logger *slog.Logger) (*cdc.Registrar, cdc.ConnectorConfig, error) {
	connector, err := connectorConfig(cfg)
	if err != nil {
		return nil, cdc.ConnectorConfig{}, err
	}

	registrar, err := cdc.NewRegistrar(cfg.CDC.URL, cdc.WithLogger(logger), cdc.WithRetry(cfg.CDC.Attempts, cfg.CDC.RetryDelay))
	if err != nil {
		return nil, cdc.ConnectorConfig{}, err
	}

	return registrar, connector, nil
}
