package producer

import (
	"context"
	"math"
	"time"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

func (l *loop) logDebug(ctx context.Context, msg string, args ...any) {
	switch {
	case l.contextualLogger != nil:
		l.contextualLogger.DebugContext(ctx, msg, args...)
	case l.logger != nil:
		l.logger.Debug(msg, args...)
	}
}

func (l *loop) logWarn(ctx context.Context, msg string, args ...any) {
	switch {
	case l.contextualLogger != nil:
		l.contextualLogger.WarnContext(ctx, msg, args...)
	case l.logger != nil:
		l.logger.Warn(msg, args...)
	}
}

// record counts one emitted record and its duration, labeled with the loop and the outcome.
func (l *loop) record(ctx context.Context, counter, histogram, loopName string, err error, duration time.Duration) {
	if l.metricsCollector == nil {
		return
	}

	status := shop.StatusSuccess
	if err != nil {
		status = shop.StatusError
	}

	labels := map[string]string{labelLoop: loopName, labelStatus: status}

	if contextual, ok := l.metricsCollector.(shop.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, counter, labels)
		contextual.RecordDurationContext(ctx, histogram, duration, labels)

		return
	}

	l.metricsCollector.IncrementCounter(counter, labels)
	l.metricsCollector.RecordDuration(histogram, duration, labels)
}

func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
