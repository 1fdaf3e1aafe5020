// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

/*
Package metrics provides Prometheus metrics for the feature pipeline.

All collectors are registered on the default registry with promauto. Scheduled
deployments expose them on /metrics; one-shot runs push them to a Pushgateway
with Push before exiting.

# Available Metrics

Pipeline Metrics:
  - palette_pipeline_runs_total: Runs by outcome (counter)
    Labels: status (success, failed, rejected)
  - palette_pipeline_run_duration_seconds: Run latency (histogram)
  - palette_pipeline_stage_duration_seconds: Stage latency (histogram)
    Labels: stage
  - palette_pipeline_last_success_timestamp_seconds: Last success (gauge)
  - palette_pipeline_in_progress: Run executing (gauge)

Size Metrics:
  - palette_catalog_items, palette_preference_profiles,
    palette_similarity_pairs, palette_snapshot_bytes, palette_snapshot_version
  - palette_interaction_events: Labels: kind

Store Metrics:
  - duckdb_query_duration_seconds, duckdb_query_errors_total
  - palette_store_read_errors_total: Labels: source
  - circuit_breaker_*: gobreaker state, requests and transitions

Notification Metrics:
  - palette_notify_published_total, palette_notify_publish_failures_total

# Usage

	start := time.Now()
	// ... run stage ...
	metrics.RecordStage("similarity", time.Since(start))

	if err := metrics.Push(ctx, cfg.Metrics.PushURL, "palette_featurizer"); err != nil {
	    logging.Warn().Err(err).Msg("Metrics push failed")
	}
*/
package metrics
