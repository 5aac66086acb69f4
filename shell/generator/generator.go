package generator

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/shop-load-generator/shop"
	"github.com/AntonStoeckl/shop-load-generator/shop/cdc"
	"github.com/AntonStoeckl/shop-load-generator/shop/producer"
	"github.com/AntonStoeckl/shop-load-generator/shop/scheduler"
	"github.com/AntonStoeckl/shop-load-generator/shop/seeding"
	"github.com/AntonStoeckl/shop-load-generator/shop/shutdown"
)

const (
	logMsgSchemaReady         = "schema ready"
	logMsgSeeded              = "seed data inserted"
	logMsgItemPricesLoaded    = "item prices loaded"
	logMsgConnectorFailed     = "cdc connector registration failed, continuing without it"
	logMsgGeneratorStarted    = "load generator started"
	logMsgGeneratorStopped    = "load generator stopped"
	logMsgCloseSinkFailed     = "closing publish sink failed"
	logMsgCloseStoreFailed    = "closing store failed"
	logAttrUsers              = "users"
	logAttrItems              = "items"
	logAttrSchemaDuration     = "duration_ms"
	logAttrPurchasesPerSecond = "purchases_per_second"
	logAttrPageviewsPerSecond = "pageviews_per_second"
	logAttrReason             = "reason"
	logAttrError              = "error"
	logAttrPurchases          = "purchases"
	logAttrPageviews          = "pageviews"
	logAttrFailedInserts      = "failed_inserts"
	logAttrFailedPublishes    = "failed_publishes"
	stopReasonContextCanceled = "run context canceled"
	stopReasonClosing         = "generator closing"
)

var ErrNilStore = errors.New("store must not be nil")
var ErrNilSink = errors.New("sink must not be nil")
var ErrNilRegistrar = errors.New("connector registrar must not be nil")
var ErrEmptyTopic = errors.New("topic must not be empty")
var ErrNotPrepared = errors.New("generator must be prepared before running")
var ErrAlreadyRunning = errors.New("generator is already running or has run")
var ErrPrepareFailed = errors.New("preparing load generator failed")
var ErrClosed = errors.New("generator is closed")

// Store is the relational store the generator seeds and writes purchases to.
type Store interface {
	Bootstrap(ctx context.Context) error
	InsertItems(ctx context.Context, items []shop.Item) error
	InsertUsers(ctx context.Context, users []shop.User) error
	ItemPrices(ctx context.Context) ([]shop.ItemPrice, error)
	InsertPurchase(ctx context.Context, purchase shop.Purchase) (int64, error)
	Close() error
}

// Sink publishes pageviews.
type Sink interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
	Close() error
}

// ConnectorRegistrar registers the CDC connector.
type ConnectorRegistrar interface {
	Register(ctx context.Context, connector cdc.ConnectorConfig) error
}

// Config holds what the generator needs beyond its collaborators.
type Config struct {
	Seed               seeding.Config
	SeedEnabled        bool
	PurchasesPerSecond float64
	PageviewsPerSecond float64
	TickTimeout        time.Duration
	Topic              string
}

// Generator owns the store, the sink, the shutdown coordinator and both drivers.
type Generator struct {
	store  Store
	sink   Sink
	config Config

	factory           *shop.EventFactory
	registrar         ConnectorRegistrar
	connector         cdc.ConnectorConfig
	connectorRequired bool

	logger           shop.Logger
	contextualLogger shop.ContextualLogger
	metricsCollector shop.MetricsCollector
	tracingCollector shop.TracingCollector

	coordinator  *shutdown.Coordinator
	purchaseLoop *producer.PurchaseLoop
	pageviewLoop *producer.PageviewLoop
	drivers      []*scheduler.Driver

	mu         sync.Mutex
	running    bool
	closed     bool
	background sync.WaitGroup
	closeOnce  sync.Once
	closeErr   error
}

// New validates the collaborators and the rates. It does not touch the store yet.
func New(store Store, sink Sink, config Config, options ...Option) (*Generator, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	if sink == nil {
		return nil, ErrNilSink
	}

	if config.Topic == "" {
		return nil, ErrEmptyTopic
	}

	if err := config.Seed.Validate(); err != nil {
		return nil, err
	}

	for _, rate := range []float64{config.PurchasesPerSecond, config.PageviewsPerSecond} {
		if _, err := scheduler.PeriodFromRate(rate); err != nil {
			return nil, err
		}
	}

	g := &Generator{store: store, sink: sink, config: config}

	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}

	var coordinatorOptions []shutdown.Option
	if g.logger != nil {
		coordinatorOptions = append(coordinatorOptions, shutdown.WithLogger(g.logger))
	}

	g.coordinator = shutdown.NewCoordinator(context.Background(), coordinatorOptions...)

	return g, nil
}

// Coordinator exposes the shutdown coordinator, e.g. to listen for process signals.
func (g *Generator) Coordinator() *shutdown.Coordinator {
	return g.coordinator
}

// Stop asks both loops to stop after their current tick.
func (g *Generator) Stop(reason string) {
	g.coordinator.RequestStop(reason)
}

// Prepare creates the schema, seeds it when enabled, loads the item price snapshot, registers
// the CDC connector and builds both loops. Any failure here means the loops never start.
func (g *Generator) Prepare(ctx context.Context) error {
	start := time.Now()
	if err := g.store.Bootstrap(ctx); err != nil {
		return errors.Join(ErrPrepareFailed, err)
	}

	g.logInfo(logMsgSchemaReady, logAttrSchemaDuration, toMilliseconds(time.Since(start)))

	if g.config.SeedEnabled {
		if err := g.seed(ctx); err != nil {
			return errors.Join(ErrPrepareFailed, err)
		}
	}

	prices, err := g.store.ItemPrices(ctx)
	if err != nil {
		return errors.Join(ErrPrepareFailed, err)
	}

	if len(prices) == 0 {
		return errors.Join(ErrPrepareFailed, shop.ErrEmptyItemPricePool)
	}

	g.logInfo(logMsgItemPricesLoaded, logAttrItems, len(prices))

	if err = g.registerConnector(ctx); err != nil {
		return errors.Join(ErrPrepareFailed, err)
	}

	if err = g.buildLoops(prices); err != nil {
		return errors.Join(ErrPrepareFailed, err)
	}

	return nil
}

// Run drives both loops until Stop is called, a stop signal arrives or ctx is canceled.
// It returns once both loops have finished their last tick.
func (g *Generator) Run(ctx context.Context) error {
	g.mu.Lock()
	switch {
	case g.closed:
		g.mu.Unlock()
		return ErrClosed
	case g.drivers == nil:
		g.mu.Unlock()
		return ErrNotPrepared
	case g.running:
		g.mu.Unlock()
		return ErrAlreadyRunning
	}

	g.running = true
	g.background.Add(1)
	g.mu.Unlock()

	defer g.background.Done()

	stopOnCancel := context.AfterFunc(ctx, func() { g.coordinator.RequestStop(stopReasonContextCanceled) })
	defer stopOnCancel()

	g.logInfo(logMsgGeneratorStarted,
		logAttrPurchasesPerSecond, g.config.PurchasesPerSecond,
		logAttrPageviewsPerSecond, g.config.PageviewsPerSecond,
	)

	stopCtx := g.coordinator.Context()

	var group errgroup.Group
	for _, driver := range g.drivers {
		group.Go(func() error { return driver.Run(stopCtx) })
	}

	err := group.Wait()

	purchases, pageviews := g.purchaseLoop.Counters(), g.pageviewLoop.Counters()
	g.logInfo(logMsgGeneratorStopped,
		logAttrReason, g.coordinator.Reason(),
		logAttrPurchases, purchases.Purchases,
		logAttrPageviews, purchases.Pageviews+pageviews.Pageviews,
		logAttrFailedInserts, purchases.FailedInserts,
		logAttrFailedPublishes, purchases.FailedPublishes+pageviews.FailedPublishes,
	)

	return err
}

// Stats returns the driver stats keyed by loop name.
func (g *Generator) Stats() map[string]scheduler.Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := make(map[string]scheduler.Stats, len(g.drivers))
	for _, driver := range g.drivers {
		stats[driver.Name()] = driver.Stats()
	}

	return stats
}

// Close stops the loops if needed and waits for Run and any background registration to return.
// Then it closes the sink and the store in that order. Errors are logged and returned joined.
// Close is idempotent.
func (g *Generator) Close() error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()

		g.coordinator.RequestStop(stopReasonClosing)
		g.background.Wait()

		sinkErr := g.sink.Close()
		if sinkErr != nil {
			g.logError(logMsgCloseSinkFailed, logAttrError, sinkErr.Error())
		}

		storeErr := g.store.Close()
		if storeErr != nil {
			g.logError(logMsgCloseStoreFailed, logAttrError, storeErr.Error())
		}

		g.closeErr = errors.Join(sinkErr, storeErr)
	})

	return g.closeErr
}

func (g *Generator) seed(ctx context.Context) error {
	seeder, err := seeding.NewGenerator(g.config.Seed)
	if err != nil {
		return err
	}

	if err = g.store.InsertItems(ctx, seeder.Items()); err != nil {
		return err
	}

	if err = g.store.InsertUsers(ctx, seeder.Users()); err != nil {
		return err
	}

	g.logInfo(logMsgSeeded, logAttrUsers, g.config.Seed.Users, logAttrItems, g.config.Seed.Items)

	return nil
}

func (g *Generator) registerConnector(ctx context.Context) error {
	if g.registrar == nil {
		return nil
	}

	if g.connectorRequired {
		return g.registrar.Register(ctx, g.connector)
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}

	g.background.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.background.Done()

		if err := g.registrar.Register(g.coordinator.Context(), g.connector); err != nil {
			g.logWarn(logMsgConnectorFailed, logAttrError, err.Error())
		}
	}()

	return nil
}

func (g *Generator) buildLoops(prices []shop.ItemPrice) error {
	loopOptions := g.loopOptions()

	purchaseLoop, err := producer.NewPurchaseLoop(producer.PurchaseLoopConfig{
		Store:      g.store,
		Publisher:  g.sink,
		Topic:      g.config.Topic,
		ItemPrices: prices,
		UserCount:  g.config.Seed.Users,
	}, loopOptions...)
	if err != nil {
		return err
	}

	pageviewLoop, err := producer.NewPageviewLoop(producer.PageviewLoopConfig{
		Publisher: g.sink,
		Topic:     g.config.Topic,
		UserCount: g.config.Seed.Users,
		ItemCount: len(prices),
	}, loopOptions...)
	if err != nil {
		return err
	}

	purchaseDriver, err := g.newDriver(purchaseLoop.Name(), g.config.PurchasesPerSecond, purchaseLoop.Tick)
	if err != nil {
		return err
	}

	pageviewDriver, err := g.newDriver(pageviewLoop.Name(), g.config.PageviewsPerSecond, pageviewLoop.Tick)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.purchaseLoop = purchaseLoop
	g.pageviewLoop = pageviewLoop
	g.drivers = []*scheduler.Driver{purchaseDriver, pageviewDriver}

	return nil
}

func (g *Generator) newDriver(name string, perSecond float64, action scheduler.Action) (*scheduler.Driver, error) {
	period, err := scheduler.PeriodFromRate(perSecond)
	if err != nil {
		return nil, err
	}

	options := []scheduler.Option{scheduler.WithTickTimeout(g.config.TickTimeout)}
	if g.logger != nil {
		options = append(options, scheduler.WithLogger(g.logger))
	}

	if g.contextualLogger != nil {
		options = append(options, scheduler.WithContextualLogger(g.contextualLogger))
	}

	if g.metricsCollector != nil {
		options = append(options, scheduler.WithMetrics(g.metricsCollector))
	}

	if g.tracingCollector != nil {
		options = append(options, scheduler.WithTracing(g.tracingCollector))
	}

	return scheduler.NewDriver(name, period, action, options...)
}

func (g *Generator) loopOptions() []producer.Option {
	var options []producer.Option
	if g.factory != nil {
		options = append(options, producer.WithEventFactory(*g.factory))
	}

	if g.logger != nil {
		options = append(options, producer.WithLogger(g.logger))
	}

	if g.contextualLogger != nil {
		options = append(options, producer.WithContextualLogger(g.contextualLogger))
	}

	if g.metricsCollector != nil {
		options = append(options, producer.WithMetrics(g.metricsCollector))
	}

	return options
}

func (g *Generator) logInfo(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Info(msg, args...)
	}
}

func (g *Generator) logWarn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}

func (g *Generator) logError(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Error(msg, args...)
	}
}

func toMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
