// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability holds the Prometheus metrics for the detection
// engine. Metrics are registered at init via promauto; recording is
// always safe and never fails.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// detectionTotal counts completed detections by browser source and
	// whether the result came from cache.
	detectionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kodiak_detector_detections_total",
		Help: "Total detections by browser source and cache outcome",
	}, []string{"browser_source", "cache"})

	// detectionDuration tracks full-detection latency (cache misses only;
	// hits are effectively free).
	detectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kodiak_detector_detection_duration_seconds",
		Help:    "Detection duration in seconds, excluding cache hits",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~160ms
	})

	// strategyFailures counts recovered strategy panics.
	strategyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kodiak_detector_strategy_failures_total",
		Help: "Total strategy panics recovered, by strategy",
	}, []string{"strategy"})

	// formatDecisionTotal counts format decisions by cascade tier.
	formatDecisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kodiak_detector_format_decisions_total",
		Help: "Total format decisions by cascade tier and format",
	}, []string{"tier", "format"})

	// qualityDecisionTotal counts quality decisions by cascade tier.
	qualityDecisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kodiak_detector_quality_decisions_total",
		Help: "Total quality decisions by cascade tier",
	}, []string{"tier"})

	// cacheEntries gauges the live result-cache size.
	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kodiak_detector_cache_entries",
		Help: "Current number of live result cache entries",
	})
)

// RecordDetection records one completed detection.
func RecordDetection(browserSource string, cacheHit bool, duration time.Duration) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	detectionTotal.WithLabelValues(browserSource, cache).Inc()
	if !cacheHit {
		detectionDuration.Observe(duration.Seconds())
	}
}

// RecordStrategyFailure records a recovered strategy panic.
func RecordStrategyFailure(strategy string) {
	strategyFailures.WithLabelValues(strategy).Inc()
}

// RecordFormatDecision records a format cascade outcome.
func RecordFormatDecision(tier, format string) {
	formatDecisionTotal.WithLabelValues(tier, format).Inc()
}

// RecordQualityDecision records a quality cascade outcome.
func RecordQualityDecision(tier string) {
	qualityDecisionTotal.WithLabelValues(tier).Inc()
}

// SetCacheEntries updates the live cache size gauge.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}
