package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const (
	metricTicks          = "loadgen_ticks_total"
	metricTickDuration   = "loadgen_tick_duration_seconds"
	metricTicksSkipped   = "loadgen_ticks_skipped"
	spanNameTick         = "loadgen.tick"
	labelLoop            = "loop"
	labelStatus          = "status"
	logMsgLoopStarted    = "loop started"
	logMsgLoopStopped    = "loop stopped"
	logMsgTickCompleted  = "tick completed"
	logMsgTickFailed     = "tick failed"
	logMsgTickPanicked   = "tick panicked"
	logMsgTicksSkipped   = "loop fell behind, skipping missed ticks"
	logAttrLoop          = "loop"
	logAttrError         = "error"
	logAttrPeriod        = "period"
	logAttrTicks         = "ticks"
	logAttrFailedTicks   = "failed_ticks"
	logAttrSkippedTicks  = "skipped_ticks"
	logAttrSkipped       = "skipped"
	logAttrDurationMS    = "duration_ms"
	logAttrAchievedRate  = "achieved_rate_per_second"
	spanAttrTickSequence = "tick_sequence"
)

var ErrInvalidRate = errors.New("rate must be a positive number of calls per second")
var ErrInvalidPeriod = errors.New("period must be positive")
var ErrNilAction = errors.New("action must not be nil")
var ErrEmptyLoopName = errors.New("loop name must not be empty")
var ErrInvalidTickTimeout = errors.New("tick timeout must not be negative")
var ErrTickPanicked = errors.New("tick panicked")

// Action is the work done on every tick.
// The context it receives is not canceled when the driver is stopped.
type Action func(ctx context.Context) error

// Stats is a snapshot of a driver's counters.
type Stats struct {
	Ticks        int64
	FailedTicks  int64
	SkippedTicks int64
}

// Driver calls its action at a fixed period until the context passed to Run is canceled.
type Driver struct {
	name             string
	period           time.Duration
	action           Action
	tickTimeout      time.Duration
	logger           shop.Logger
	contextualLogger shop.ContextualLogger
	metricsCollector shop.MetricsCollector
	tracingCollector shop.TracingCollector

	ticks        atomic.Int64
	failedTicks  atomic.Int64
	skippedTicks atomic.Int64
}

// PeriodFromRate converts calls per second into the period between two calls.
func PeriodFromRate(perSecond float64) (time.Duration, error) {
	if perSecond <= 0 || math.IsNaN(perSecond) || math.IsInf(perSecond, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidRate, perSecond)
	}

	period := time.Duration(float64(time.Second) / perSecond)
	if period <= 0 {
		return 0, fmt.Errorf("%w: %v per second is faster than the timer resolution", ErrInvalidRate, perSecond)
	}

	return period, nil
}

// NewDriver creates a Driver named after the loop it drives.
func NewDriver(name string, period time.Duration, action Action, options ...Option) (*Driver, error) {
	if name == "" {
		return nil, ErrEmptyLoopName
	}

	if period <= 0 {
		return nil, ErrInvalidPeriod
	}

	if action == nil {
		return nil, ErrNilAction
	}

	d := &Driver{
		name:   name,
		period: period,
		action: action,
	}

	for _, option := range options {
		if err := option(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Name returns the loop name.
func (d *Driver) Name() string {
	return d.name
}

// Period returns the target period between two ticks.
func (d *Driver) Period() time.Duration {
	return d.period
}

// Stats returns the current counters. Safe to call while Run is active.
func (d *Driver) Stats() Stats {
	return Stats{
		Ticks:        d.ticks.Load(),
		FailedTicks:  d.failedTicks.Load(),
		SkippedTicks: d.skippedTicks.Load(),
	}
}

// Run calls the action every period until ctx is canceled and returns nil once stopped.
//
// The context is only checked between ticks. An action that is already running completes
// before Run returns, and no tick starts after ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	actionCtx := context.WithoutCancel(ctx)
	start := time.Now()
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	d.logInfo(logMsgLoopStarted, logAttrLoop, d.name, logAttrPeriod, d.period.String())
	defer d.logFinalStats(start)

	var i int64

	for {
		if ctx.Err() != nil {
			return nil
		}

		d.tick(actionCtx, i)
		i++

		now := time.Now()
		next := start.Add(time.Duration(i) * d.period)

		if behind := now.Sub(next); behind > d.period {
			missed := int64(behind / d.period)
			i += missed
			next = start.Add(time.Duration(i) * d.period)
			d.recordSkipped(missed)
		}

		wait := next.Sub(now)
		if wait <= 0 {
			continue
		}

		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// tick runs the action once, recovering panics so that one broken tick never ends the loop.
func (d *Driver) tick(ctx context.Context, sequence int64) {
	if d.tickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.tickTimeout)
		defer cancel()
	}

	ctx, span := d.startTickSpan(ctx, sequence)
	started := time.Now()

	err := d.runAction(ctx)
	duration := time.Since(started)

	d.ticks.Add(1)
	status := shop.StatusSuccess

	if err != nil {
		status = shop.StatusError
		d.failedTicks.Add(1)
		d.logTickError(ctx, err, duration)
	} else {
		d.logTickDebug(ctx, duration)
	}

	d.recordTick(ctx, status, duration)
	d.finishTickSpan(span, status, duration)
}

func (d *Driver) runAction(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanicked, r)
		}
	}()

	return d.action(ctx)
}
