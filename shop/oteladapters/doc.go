// Package oteladapters implements the shop observability interfaces on top of OpenTelemetry.
//
// Durations become float64 histograms in seconds, counters become int64 counters,
// and values become float64 gauges. Instruments are created lazily on first use and cached by name.
package oteladapters
