package postgresengine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const (
	operationBootstrap      = "bootstrap"
	operationInsertItems    = "insert_items"
	operationInsertUsers    = "insert_users"
	operationItemPrices     = "item_prices"
	operationInsertPurchase = "insert_purchase"
	errorTypeBuildQuery     = "build_query"
	errorTypeExec           = "exec"
	errorTypeQuery          = "query"
	errorTypeScan           = "scan"
	errorTypeNoRow          = "no_row"
	metricOperationDuration = "loadgen_store_operation_duration_seconds"
	metricRowsWritten       = "loadgen_store_rows"
	metricDatabaseErrors    = "loadgen_store_errors_total"
	spanNamePrefix          = "store."
	labelOperation          = "operation"
	labelStatus             = "status"
	labelErrorType          = "error_type"
	spanAttrSchema          = "schema"
	spanAttrRowCount        = "row_count"
	spanAttrErrorType       = "error_type"
	spanAttrDurationMS      = "duration_ms"
	logMsgSQLExecuted       = "executed sql for: "
	logMsgOperation         = "store operation: "
	logMsgSchemaReady       = "schema ready"
	logMsgRowsSeeded        = "rows seeded"
	logMsgPricesLoaded      = "item prices loaded"
	logMsgBuildQueryFailed  = "failed to build query"
	logMsgDBExecFailed      = "database execution failed"
	logMsgDBQueryFailed     = "database query failed"
	logMsgScanRowFailed     = "failed to scan database row"
	logMsgCloseRowsFailed   = "failed to close database rows"
	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrOperation        = "operation"
	logAttrSchema           = "schema"
	logAttrTable            = "table"
	logAttrRowCount         = "row_count"
	logAttrItemID           = "item_id"
	logAttrDurationMS       = "duration_ms"
)

// operationObserver records the span and the metrics of one store operation.
type operationObserver struct {
	s         *Store
	ctx       context.Context
	operation string
	span      shop.SpanContext
	started   time.Time
}

func (s *Store) startOperation(ctx context.Context, operation string) (*operationObserver, context.Context) {
	var span shop.SpanContext

	if s.tracingCollector != nil {
		ctx, span = s.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{
			labelOperation: operation,
			spanAttrSchema: s.schema,
		})
	}

	return &operationObserver{s: s, ctx: ctx, operation: operation, span: span, started: time.Now()}, ctx
}

func (o *operationObserver) success(rows int64) {
	duration := time.Since(o.started)
	o.s.recordDuration(o.ctx, o.operation, shop.StatusSuccess, duration)

	if rows > 0 {
		o.s.recordValue(o.ctx, metricRowsWritten, float64(rows), map[string]string{labelOperation: o.operation})
	}

	o.finishSpan(shop.StatusSuccess, map[string]string{
		spanAttrRowCount:   strconv.FormatInt(rows, 10),
		spanAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 2, 64),
	})
}

func (o *operationObserver) failure(errorType string) {
	duration := time.Since(o.started)
	o.s.recordDuration(o.ctx, o.operation, shop.StatusError, duration)
	o.s.incrementCounter(o.ctx, metricDatabaseErrors, map[string]string{
		labelOperation: o.operation,
		labelErrorType: errorType,
	})

	o.finishSpan(shop.StatusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 2, 64),
	})
}

func (o *operationObserver) finishSpan(status string, attrs map[string]string) {
	if o.span == nil || o.s.tracingCollector == nil {
		return
	}

	o.span.SetStatus(status)
	o.s.tracingCollector.FinishSpan(o.span, status, attrs)
}

func (s *Store) recordDuration(ctx context.Context, operation, status string, duration time.Duration) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation, labelStatus: status}

	if contextual, ok := s.metricsCollector.(shop.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
}

func (s *Store) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextual, ok := s.metricsCollector.(shop.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	s.metricsCollector.RecordValue(metric, value, labels)
}

func (s *Store) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextual, ok := s.metricsCollector.(shop.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (s *Store) logQueryWithDuration(ctx context.Context, sqlQuery, operation string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+operation, args...)
	case s.logger != nil:
		s.logger.Debug(logMsgSQLExecuted+operation, args...)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (s *Store) logOperation(action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

func (s *Store) logWarn(ctx context.Context, msg string, args ...any) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.WarnContext(ctx, msg, args...)
	case s.logger != nil:
		s.logger.Warn(msg, args...)
	}
}

func (s *Store) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	case s.logger != nil:
		s.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
