package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shop-load-generator/shop/scheduler"
	. "github.com/AntonStoeckl/shop-load-generator/testutil/helper" //nolint:revive
)

func Test_PeriodFromRate(t *testing.T) {
	period, err := scheduler.PeriodFromRate(10)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, period)

	period, err = scheduler.PeriodFromRate(750)
	require.NoError(t, err)
	assert.Equal(t, time.Second/750, period)

	for _, rate := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err = scheduler.PeriodFromRate(rate)
		assert.ErrorIs(t, err, scheduler.ErrInvalidRate, "rate %v", rate)
	}
}

func Test_NewDriver_RejectsInvalidInput(t *testing.T) {
	action := func(context.Context) error { return nil }

	_, err := scheduler.NewDriver("", time.Second, action)
	assert.ErrorIs(t, err, scheduler.ErrEmptyLoopName)

	_, err = scheduler.NewDriver("purchases", 0, action)
	assert.ErrorIs(t, err, scheduler.ErrInvalidPeriod)

	_, err = scheduler.NewDriver("purchases", time.Second, nil)
	assert.ErrorIs(t, err, scheduler.ErrNilAction)

	_, err = scheduler.NewDriver("purchases", time.Second, action, scheduler.WithTickTimeout(-time.Second))
	assert.ErrorIs(t, err, scheduler.ErrInvalidTickTimeout)
}

func Test_Driver_Run_TicksAtTheConfiguredRate(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var calls atomic.Int64
	driver, err := scheduler.NewDriver("pageviews", 100*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	// act
	err = driver.Run(ctx)

	// assert
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int64(9))
	assert.LessOrEqual(t, calls.Load(), int64(11))
	assert.Equal(t, calls.Load(), driver.Stats().Ticks)
}

func Test_Driver_Run_DoesNotAccumulateDrift(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const wantTicks = 25
	period := 20 * time.Millisecond
	startedAt := make([]time.Time, 0, wantTicks)

	driver, err := scheduler.NewDriver("pageviews", period, func(context.Context) error {
		startedAt = append(startedAt, time.Now())
		time.Sleep(2 * time.Millisecond)

		if len(startedAt) == wantTicks {
			cancel()
		}

		return nil
	})
	require.NoError(t, err)

	// act
	err = driver.Run(ctx)

	// assert
	require.NoError(t, err)
	require.Len(t, startedAt, wantTicks)
	span := startedAt[wantTicks-1].Sub(startedAt[0])
	assert.InDelta(t, float64(24*period), float64(span), float64(40*time.Millisecond),
		"24 periods should span about 480ms, got %v", span)
}

func Test_Driver_Run_StopBeforeFirstTick_RunsNothing(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	driver, err := scheduler.NewDriver("purchases", 10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	// act
	err = driver.Run(ctx)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, int64(0), calls.Load())
	assert.Equal(t, scheduler.Stats{}, driver.Stats())
}

func Test_Driver_Run_StopDuringTick_LetsTheTickFinish(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	var once sync.Once
	var completed atomic.Bool
	var actionCtxCanceled atomic.Bool

	driver, err := scheduler.NewDriver("purchases", time.Second, func(actionCtx context.Context) error {
		once.Do(func() { close(started) })
		time.Sleep(100 * time.Millisecond)
		actionCtxCanceled.Store(actionCtx.Err() != nil)
		completed.Store(true)

		return nil
	})
	require.NoError(t, err)

	done := make(chan error, 1)

	// act
	go func() { done <- driver.Run(ctx) }()
	<-started
	cancel()

	// assert
	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}

	assert.True(t, completed.Load(), "the running tick should complete")
	assert.False(t, actionCtxCanceled.Load(), "the action context should not be canceled")
	assert.Equal(t, int64(1), driver.Stats().Ticks, "no tick should start after stop")
}

func Test_Driver_Run_FailingActionKeepsTicking(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	boom := errors.New("connection refused")

	driver, err := scheduler.NewDriver(
		"purchases",
		10*time.Millisecond,
		func(context.Context) error { return boom },
		scheduler.WithLogger(NewSpyLogger(logSpy)),
	)
	require.NoError(t, err)

	// act
	err = driver.Run(ctx)

	// assert
	assert.NoError(t, err)
	stats := driver.Stats()
	assert.Greater(t, stats.Ticks, int64(10))
	assert.Equal(t, stats.Ticks, stats.FailedTicks)
	assert.Equal(t, int(stats.Ticks), logSpy.CountLogs(slog.LevelError, "tick failed"))
	assert.True(t, logSpy.HasLogWithAttr(slog.LevelError, "tick failed", "error", "connection refused"))
	assert.True(t, logSpy.HasLog(slog.LevelInfo, "loop stopped"))
}

func Test_Driver_Run_RecoversFromPanics(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	var calls atomic.Int64

	driver, err := scheduler.NewDriver(
		"pageviews",
		5*time.Millisecond,
		func(context.Context) error {
			n := calls.Add(1)
			if n == 1 {
				panic("nil map")
			}

			if n == 3 {
				cancel()
			}

			return nil
		},
		scheduler.WithLogger(NewSpyLogger(logSpy)),
	)
	require.NoError(t, err)

	// act
	err = driver.Run(ctx)

	// assert
	assert.NoError(t, err)
	stats := driver.Stats()
	assert.Equal(t, int64(3), stats.Ticks)
	assert.Equal(t, int64(1), stats.FailedTicks)
	assert.True(t, logSpy.HasLog(slog.LevelError, "tick panicked"))
}

func Test_Driver_Run_SkipsMissedTicksWhenFallingBehind(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy()
	var calls atomic.Int64

	driver, err := scheduler.NewDriver(
		"purchases",
		10*time.Millisecond,
		func(context.Context) error {
			n := calls.Add(1)
			if n == 1 {
				time.Sleep(55 * time.Millisecond)
			}

			if n == 3 {
				cancel()
			}

			return nil
		},
		scheduler.WithLogger(NewSpyLogger(logSpy)),
		scheduler.WithMetrics(metricsSpy),
	)
	require.NoError(t, err)

	// act
	err = driver.Run(ctx)

	// assert
	assert.NoError(t, err)
	stats := driver.Stats()
	assert.Equal(t, int64(3), stats.Ticks)
	assert.GreaterOrEqual(t, stats.SkippedTicks, int64(3))
	assert.True(t, logSpy.HasLog(slog.LevelWarn, "loop fell behind, skipping missed ticks"))
	assert.True(t, metricsSpy.HasValueRecord("loadgen_ticks_skipped"))
}

func Test_Driver_Run_RecordsTickMetricsAndSpans(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsSpy := NewMetricsCollectorSpy()
	tracingSpy := NewTracingCollectorSpy()
	var calls atomic.Int64

	driver, err := scheduler.NewDriver(
		"purchases",
		time.Millisecond,
		func(context.Context) error {
			n := calls.Add(1)
			if n == 4 {
				cancel()
			}

			if n%2 == 0 {
				return errors.New("duplicate key")
			}

			return nil
		},
		scheduler.WithMetrics(metricsSpy),
		scheduler.WithTracing(tracingSpy),
	)
	require.NoError(t, err)

	// act
	err = driver.Run(ctx)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 2, metricsSpy.CountCounterRecords("loadgen_ticks_total", map[string]string{"loop": "purchases", "status": "success"}))
	assert.Equal(t, 2, metricsSpy.CountCounterRecords("loadgen_ticks_total", map[string]string{"loop": "purchases", "status": "error"}))
	assert.True(t, metricsSpy.HasDurationRecord("loadgen_tick_duration_seconds"))

	spans := tracingSpy.Spans()
	require.Len(t, spans, 4)
	assert.Equal(t, "loadgen.tick", spans[0].Name)
	assert.Equal(t, "success", spans[0].Status)
	assert.Equal(t, "error", spans[1].Status)
	assert.Equal(t, "purchases", spans[0].Attrs["loop"])
	assert.Equal(t, "0", spans[0].Attrs["tick_sequence"])
}

func Test_Driver_Run_TickTimeoutBoundsTheActionContext(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sawDeadline atomic.Bool

	driver, err := scheduler.NewDriver(
		"purchases",
		time.Millisecond,
		func(actionCtx context.Context) error {
			_, ok := actionCtx.Deadline()
			sawDeadline.Store(ok)
			cancel()

			return nil
		},
		scheduler.WithTickTimeout(time.Second),
	)
	require.NoError(t, err)

	// act
	err = driver.Run(ctx)

	// assert
	assert.NoError(t, err)
	assert.True(t, sawDeadline.Load())
}
