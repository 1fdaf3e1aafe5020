// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Run status label values.
const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusRejected = "rejected"
)

var (
	// Pipeline Run Metrics
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palette_pipeline_runs_total",
			Help: "Total number of feature pipeline runs",
		},
		[]string{"status"}, // "success", "failed", "rejected"
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "palette_pipeline_run_duration_seconds",
			Help:    "Duration of complete feature pipeline runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "palette_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	PipelineLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palette_pipeline_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful pipeline run",
		},
	)

	PipelineInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palette_pipeline_in_progress",
			Help: "1 while a pipeline run is executing",
		},
	)

	// Catalog and Output Size Metrics
	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palette_catalog_items",
			Help: "Number of published items read in the last run",
		},
	)

	InteractionEvents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "palette_interaction_events",
			Help: "Number of interaction events read in the last run",
		},
		[]string{"kind"}, // "approval", "positive_approval", "behavior"
	)

	PreferenceProfiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palette_preference_profiles",
			Help: "Number of user preference profiles in the last snapshot",
		},
	)

	SimilarityPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palette_similarity_pairs",
			Help: "Number of ordered item pairs in the last similarity matrix",
		},
	)

	OrphanedApprovals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "palette_orphaned_approvals_total",
			Help: "Positive approvals skipped because the item is not in the catalog",
		},
	)

	SnapshotBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palette_snapshot_bytes",
			Help: "Size of the last written snapshot in bytes",
		},
	)

	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palette_snapshot_version",
			Help: "Archive version of the last written snapshot",
		},
	)

	// Store Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	StoreReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palette_store_read_errors_total",
			Help: "Total number of failed collaborator reads",
		},
		[]string{"source"}, // "items", "approvals", "behaviors"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Notification Metrics
	NotifyPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "palette_notify_published_total",
			Help: "Total number of snapshot-published events delivered",
		},
	)

	NotifyPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "palette_notify_publish_failures_total",
			Help: "Total number of snapshot-published events that failed to publish",
		},
	)

	// Ops API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palette_api_requests_total",
			Help: "Total number of ops API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "palette_api_request_duration_seconds",
			Help:    "Ops API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	// Run Ledger Metrics
	LedgerWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "palette_ledger_write_errors_total",
			Help: "Total number of run records that could not be written",
		},
	)
)

// RecordAPIRequest records one ops API request. endpoint should be the
// route pattern, not the raw path.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRun records the outcome of a pipeline run.
func RecordRun(status string, duration time.Duration) {
	PipelineRunsTotal.WithLabelValues(status).Inc()
	if status == StatusRejected {
		return
	}
	PipelineRunDuration.Observe(duration.Seconds())
	if status == StatusSuccess {
		PipelineLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordStage records the duration of one pipeline stage.
func RecordStage(stage string, duration time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// TrackRun marks a run as executing or finished.
func TrackRun(running bool) {
	if running {
		PipelineInProgress.Set(1)
	} else {
		PipelineInProgress.Set(0)
	}
}

// RunSizes is the set of size gauges updated after each run.
type RunSizes struct {
	Items             int
	Approvals         int
	PositiveApprovals int
	Behaviors         int
	Profiles          int
	Pairs             int
	Orphaned          int
}

// RecordRunSizes updates the catalog and output size gauges.
func RecordRunSizes(s RunSizes) {
	CatalogItems.Set(float64(s.Items))
	InteractionEvents.WithLabelValues("approval").Set(float64(s.Approvals))
	InteractionEvents.WithLabelValues("positive_approval").Set(float64(s.PositiveApprovals))
	InteractionEvents.WithLabelValues("behavior").Set(float64(s.Behaviors))
	PreferenceProfiles.Set(float64(s.Profiles))
	SimilarityPairs.Set(float64(s.Pairs))
	OrphanedApprovals.Add(float64(s.Orphaned))
}

// RecordSnapshot records the size and archive version of a written snapshot.
func RecordSnapshot(sizeBytes int64, version int) {
	SnapshotBytes.Set(float64(sizeBytes))
	if version > 0 {
		SnapshotVersion.Set(float64(version))
	}
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordStoreReadError counts a failed collaborator read.
func RecordStoreReadError(source string) {
	StoreReadErrors.WithLabelValues(source).Inc()
}

// RecordNotify records the outcome of a snapshot-published event.
func RecordNotify(err error) {
	if err != nil {
		NotifyPublishFailures.Inc()
		return
	}
	NotifyPublished.Inc()
}

// RecordLedgerError counts a run record that could not be persisted.
func RecordLedgerError() {
	LedgerWriteErrors.Inc()
}

// Push sends every registered metric to a Prometheus Pushgateway. Used by
// one-shot runs, which exit before a scrape would see them.
func Push(ctx context.Context, url, job string) error {
	return PushFrom(ctx, prometheus.DefaultGatherer, url, job)
}

// PushFrom pushes the metrics of g to a Pushgateway.
func PushFrom(ctx context.Context, g prometheus.Gatherer, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
