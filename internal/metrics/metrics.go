// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

// Package metrics provides Prometheus instrumentation for the import
// pipeline, the storage layer, and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Import pipeline metrics

	ImportRowsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_rows_processed_total",
			Help: "Total number of non-blank CSV rows processed",
		},
	)

	ImportRowsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_rows_imported_total",
			Help: "Total number of posts written as new records",
		},
	)

	ImportRowErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_row_errors_total",
			Help: "Total number of rows counted as errors",
		},
		[]string{"kind"}, // "validation" or "batch"
	)

	ImportDuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_duplicates_skipped_total",
			Help: "Total number of rows skipped as already-persisted duplicates",
		},
	)

	ImportBatchFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "import_batch_flush_duration_seconds",
			Help:    "Duration of one batch flush (dedup lookup plus bulk insert)",
			Buckets: prometheus.DefBuckets,
		},
	)

	ImportBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "import_batch_size_rows",
			Help:    "Number of rows per flushed batch",
			Buckets: []float64{10, 50, 100, 250, 500, 750, 1000},
		},
	)

	ImportRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_runs_total",
			Help: "Total number of import runs by outcome",
		},
		[]string{"outcome"}, // "clean", "degraded", "failed"
	)

	// Database metrics

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// Tokenizer metrics

	TokenizerInitDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenizer_init_duration_seconds",
			Help: "Time spent loading the morphological dictionary at first use",
		},
	)

	TokenizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tokenize_duration_seconds",
			Help:    "Duration of one tokenize call",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)
)

// RecordDBQuery observes one database operation.
func RecordDBQuery(operation string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest observes one completed HTTP request.
func RecordAPIRequest(endpoint, method string, status int, start time.Time) {
	APIRequestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
}
