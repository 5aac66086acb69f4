package generator_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shop-load-generator/shell/generator"
	"github.com/AntonStoeckl/shop-load-generator/shop"
	"github.com/AntonStoeckl/shop-load-generator/shop/cdc"
	"github.com/AntonStoeckl/shop-load-generator/shop/seeding"
	. "github.com/AntonStoeckl/shop-load-generator/testutil/helper" //nolint:revive
)

func givenConfig() generator.Config {
	return generator.Config{
		Seed: seeding.Config{
			Users:        20,
			Items:        5,
			PriceMin:     shop.Cents(500),
			PriceMax:     shop.Cents(1000),
			InventoryMin: 1,
			InventoryMax: 10,
		},
		SeedEnabled:        true,
		PurchasesPerSecond: 200,
		PageviewsPerSecond: 500,
		Topic:              "pageviews",
	}
}

type registrarFake struct {
	mu    sync.Mutex
	calls []cdc.ConnectorConfig
	err   error
}

func (r *registrarFake) Register(_ context.Context, connector cdc.ConnectorConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, connector)

	return r.err
}

func (r *registrarFake) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.calls)
}

func Test_New_RejectsInvalidInput(t *testing.T) {
	store, sink := NewStoreFake(), NewPublisherSpy()

	_, err := generator.New(nil, sink, givenConfig())
	assert.ErrorIs(t, err, generator.ErrNilStore)

	_, err = generator.New(store, nil, givenConfig())
	assert.ErrorIs(t, err, generator.ErrNilSink)

	config := givenConfig()
	config.Topic = ""
	_, err = generator.New(store, sink, config)
	assert.ErrorIs(t, err, generator.ErrEmptyTopic)

	config = givenConfig()
	config.PageviewsPerSecond = 0
	_, err = generator.New(store, sink, config)
	assert.Error(t, err)

	config = givenConfig()
	config.Seed.Users = 0
	_, err = generator.New(store, sink, config)
	assert.ErrorIs(t, err, shop.ErrInvalidUserCount)

	_, err = generator.New(store, sink, givenConfig(), generator.WithConnectorRegistration(nil, cdc.ConnectorConfig{}, false))
	assert.ErrorIs(t, err, generator.ErrNilRegistrar)
}

func Test_Generator_Prepare_BootstrapsSeedsAndLoadsPrices(t *testing.T) {
	// setup
	store := NewStoreFake()
	logSpy := NewLogHandlerSpy(false)

	gen, err := generator.New(store, NewPublisherSpy(), givenConfig(), generator.WithLogger(NewSpyLogger(logSpy)))
	require.NoError(t, err)

	// act
	err = gen.Prepare(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, store.Bootstrapped())
	assert.Equal(t, 5, store.ItemCount())
	assert.Equal(t, 20, store.UserCount())
	assert.True(t, logSpy.HasLogWithAttr(slog.LevelInfo, "item prices loaded", "items", "5"))
}

func Test_Generator_Prepare_StartupFailuresKeepTheLoopsFromStarting(t *testing.T) {
	dbDown := errors.New("connection refused")

	testCases := []struct {
		name    string
		store   *StoreFake
		seed    bool
		wantErr error
	}{
		{"bootstrap fails", NewStoreFake(WithBootstrapError(dbDown)), true, dbDown},
		{"loading prices fails", NewStoreFake(WithItemPricesError(dbDown)), true, dbDown},
		{"empty price pool", NewStoreFake(), false, shop.ErrEmptyItemPricePool},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := givenConfig()
			config.SeedEnabled = tc.seed

			gen, err := generator.New(tc.store, NewPublisherSpy(), config)
			require.NoError(t, err)

			err = gen.Prepare(context.Background())

			assert.ErrorIs(t, err, generator.ErrPrepareFailed)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, gen.Run(context.Background()), generator.ErrNotPrepared)
			assert.Empty(t, tc.store.Purchases())
		})
	}
}

func Test_Generator_Run_DrivesBothLoopsUntilStopped(t *testing.T) {
	// setup
	store := NewStoreFake()
	sink := NewPublisherSpy()
	logSpy := NewLogHandlerSpy(false)

	gen, err := generator.New(store, sink, givenConfig(), generator.WithLogger(NewSpyLogger(logSpy)))
	require.NoError(t, err)
	require.NoError(t, gen.Prepare(context.Background()))

	done := make(chan error, 1)

	// act
	go func() { done <- gen.Run(context.Background()) }()
	time.Sleep(200 * time.Millisecond)
	gen.Stop("test finished")

	// assert
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("generator did not stop")
	}

	purchases := len(store.Purchases())
	assert.Positive(t, purchases)
	assert.Greater(t, sink.Count(), purchases, "pageviews from both loops")

	stats := gen.Stats()
	assert.Equal(t, int64(purchases), stats["purchases"].Ticks)
	assert.Positive(t, stats["pageviews"].Ticks)
	assert.Greater(t, stats["pageviews"].Ticks, stats["purchases"].Ticks)

	assert.True(t, logSpy.HasLogWithAttr(slog.LevelInfo, "load generator stopped", "reason", "test finished"))
	assert.False(t, store.Closed(), "Run does not close the collaborators")
}

func Test_Generator_Run_StopsWhenTheContextIsCanceled(t *testing.T) {
	// setup
	gen, err := generator.New(NewStoreFake(), NewPublisherSpy(), givenConfig())
	require.NoError(t, err)
	require.NoError(t, gen.Prepare(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// act
	err = gen.Run(ctx)

	// assert
	assert.NoError(t, err)
	assert.True(t, gen.Coordinator().Stopped())
	assert.ErrorIs(t, gen.Run(context.Background()), generator.ErrAlreadyRunning)
}

func Test_Generator_Run_FailingStoreDoesNotStopThePageviewLoop(t *testing.T) {
	// setup
	store := NewStoreFake(WithInsertPurchaseError(errors.New("connection refused")))
	sink := NewPublisherSpy()

	gen, err := generator.New(store, sink, givenConfig())
	require.NoError(t, err)
	require.NoError(t, gen.Prepare(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	// act
	err = gen.Run(ctx)

	// assert
	assert.NoError(t, err)
	assert.Empty(t, store.Purchases())

	stats := gen.Stats()
	assert.Positive(t, stats["purchases"].Ticks)
	assert.Equal(t, stats["purchases"].Ticks, stats["purchases"].FailedTicks)
	assert.Positive(t, stats["pageviews"].Ticks)
	assert.Zero(t, stats["pageviews"].FailedTicks)
	assert.Positive(t, sink.Count())
}

type closeRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *closeRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

type recordingStore struct {
	*StoreFake
	recorder *closeRecorder
}

func (s recordingStore) Close() error {
	s.recorder.record("store")
	return s.StoreFake.Close()
}

type recordingSink struct {
	*PublisherSpy
	recorder *closeRecorder
	err      error
}

func (s recordingSink) Close() error {
	s.recorder.record("sink")
	_ = s.PublisherSpy.Close()

	return s.err
}

func Test_Generator_Close_ClosesSinkThenStoreAndReportsErrors(t *testing.T) {
	// setup
	recorder := &closeRecorder{}
	sinkErr := errors.New("flush timed out")
	storeErr := errors.New("pool already closed")
	logSpy := NewLogHandlerSpy(false)

	store := recordingStore{StoreFake: NewStoreFake(WithCloseError(storeErr)), recorder: recorder}
	sink := recordingSink{PublisherSpy: NewPublisherSpy(), recorder: recorder, err: sinkErr}

	gen, err := generator.New(store, sink, givenConfig(), generator.WithLogger(NewSpyLogger(logSpy)))
	require.NoError(t, err)

	// act
	err = gen.Close()
	again := gen.Close()

	// assert
	assert.ErrorIs(t, err, sinkErr)
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, err, again)
	assert.Equal(t, []string{"sink", "store"}, recorder.order)
	assert.True(t, logSpy.HasLog(slog.LevelError, "closing publish sink failed"))
	assert.True(t, logSpy.HasLog(slog.LevelError, "closing store failed"))
	assert.ErrorIs(t, gen.Run(context.Background()), generator.ErrClosed)
}

func Test_Generator_Close_WaitsForARunningGenerator(t *testing.T) {
	// setup
	store := NewStoreFake()
	gen, err := generator.New(store, NewPublisherSpy(), givenConfig())
	require.NoError(t, err)
	require.NoError(t, gen.Prepare(context.Background()))

	done := make(chan error, 1)
	go func() { done <- gen.Run(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	// act
	require.NoError(t, gen.Close())

	// assert
	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	assert.True(t, store.Closed())
	assert.Equal(t, "generator closing", gen.Coordinator().Reason())
}

func Test_Generator_Prepare_RequiredConnectorRegistrationMustSucceed(t *testing.T) {
	// setup
	rejected := errors.New("connector config is invalid")
	registrar := &registrarFake{err: rejected}
	connector := cdc.ConnectorConfig{Name: "postgres-connector"}

	gen, err := generator.New(NewStoreFake(), NewPublisherSpy(), givenConfig(),
		generator.WithConnectorRegistration(registrar, connector, true),
	)
	require.NoError(t, err)

	// act
	err = gen.Prepare(context.Background())

	// assert
	assert.ErrorIs(t, err, generator.ErrPrepareFailed)
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 1, registrar.Calls())
}

func Test_Generator_Prepare_OptionalConnectorRegistrationOnlyWarns(t *testing.T) {
	// setup
	registrar := &registrarFake{err: errors.New("connection refused")}
	logSpy := NewLogHandlerSpy(false)

	gen, err := generator.New(NewStoreFake(), NewPublisherSpy(), givenConfig(),
		generator.WithLogger(NewSpyLogger(logSpy)),
		generator.WithConnectorRegistration(registrar, cdc.ConnectorConfig{Name: "postgres-connector"}, false),
	)
	require.NoError(t, err)

	// act
	err = gen.Prepare(context.Background())
	require.NoError(t, gen.Close())

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, registrar.Calls())
	assert.True(t, logSpy.HasLog(slog.LevelWarn, "cdc connector registration failed, continuing without it"))
}
