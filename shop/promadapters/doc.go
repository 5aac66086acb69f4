// Package promadapters implements shop.MetricsCollector with Prometheus vectors and serves them on /metrics.
package promadapters
