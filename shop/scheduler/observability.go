package scheduler

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

// logInfo logs operational information at info level if a logger is configured.
func (d *Driver) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

// logTickDebug logs a completed tick at debug level.
func (d *Driver) logTickDebug(ctx context.Context, duration time.Duration) {
	args := []any{logAttrLoop, d.name, logAttrDurationMS, toMilliseconds(duration)}

	switch {
	case d.contextualLogger != nil:
		d.contextualLogger.DebugContext(ctx, logMsgTickCompleted, args...)
	case d.logger != nil:
		d.logger.Debug(logMsgTickCompleted, args...)
	}
}

// logTickError logs a failed or panicked tick at error level.
func (d *Driver) logTickError(ctx context.Context, err error, duration time.Duration) {
	msg := logMsgTickFailed
	if errors.Is(err, ErrTickPanicked) {
		msg = logMsgTickPanicked
	}

	args := []any{logAttrLoop, d.name, logAttrError, err.Error(), logAttrDurationMS, toMilliseconds(duration)}

	switch {
	case d.contextualLogger != nil:
		d.contextualLogger.ErrorContext(ctx, msg, args...)
	case d.logger != nil:
		d.logger.Error(msg, args...)
	}
}

// logFinalStats logs the counters and the achieved rate when the loop stops.
func (d *Driver) logFinalStats(start time.Time) {
	if d.logger == nil {
		return
	}

	stats := d.Stats()
	elapsed := time.Since(start)

	achievedRate := 0.0
	if elapsed > 0 {
		achievedRate = math.Round(float64(stats.Ticks)/elapsed.Seconds()*100) / 100
	}

	d.logger.Info(
		logMsgLoopStopped,
		logAttrLoop, d.name,
		logAttrTicks, stats.Ticks,
		logAttrFailedTicks, stats.FailedTicks,
		logAttrSkippedTicks, stats.SkippedTicks,
		logAttrAchievedRate, achievedRate,
	)
}

// recordTick records the tick counter and duration if a metrics collector is configured.
func (d *Driver) recordTick(ctx context.Context, status string, duration time.Duration) {
	if d.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelLoop: d.name, labelStatus: status}

	if contextual, ok := d.metricsCollector.(shop.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricTicks, labels)
		contextual.RecordDurationContext(ctx, metricTickDuration, duration, labels)

		return
	}

	d.metricsCollector.IncrementCounter(metricTicks, labels)
	d.metricsCollector.RecordDuration(metricTickDuration, duration, labels)
}

// recordSkipped counts ticks that were dropped because the loop fell behind.
func (d *Driver) recordSkipped(missed int64) {
	d.skippedTicks.Add(missed)

	if d.logger != nil {
		d.logger.Warn(logMsgTicksSkipped, logAttrLoop, d.name, logAttrSkipped, missed)
	}

	if d.metricsCollector != nil {
		d.metricsCollector.RecordValue(metricTicksSkipped, float64(d.skippedTicks.Load()), map[string]string{labelLoop: d.name})
	}
}

func (d *Driver) startTickSpan(ctx context.Context, sequence int64) (context.Context, shop.SpanContext) {
	if d.tracingCollector == nil {
		return ctx, nil
	}

	return d.tracingCollector.StartSpan(ctx, spanNameTick, map[string]string{
		labelLoop:            d.name,
		spanAttrTickSequence: strconv.FormatInt(sequence, 10),
	})
}

func (d *Driver) finishTickSpan(span shop.SpanContext, status string, duration time.Duration) {
	if d.tracingCollector == nil || span == nil {
		return
	}

	d.tracingCollector.FinishSpan(span, status, map[string]string{
		logAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64),
	})
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
