// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

/*
Package config provides centralized configuration management for the featurizer.

Configuration is layered with Koanf v2: built-in defaults first, then an
optional YAML file, then environment variables.

# Configuration Sources

  - Defaults from defaultConfig()
  - YAML file from CONFIG_PATH, ./config.yaml, or /etc/palette/config.yaml
  - Environment variables listed in envMappings (unmapped variables are ignored)

# Configuration Structure

  - RunConfig: once or schedule mode
  - DatabaseConfig: DuckDB path and tuning
  - PipelineConfig: read timeout, interaction windows, catalog cap
  - FeaturesConfig: reference tag vocabulary and popularity normalization
  - PopularityConfig: ranked list lengths
  - SnapshotConfig: output directory, file name, history depth
  - LedgerConfig: Badger run ledger
  - NotifyConfig: snapshot-published event over NATS or an in-process channel
  - BreakerConfig: circuit breaker around store reads
  - ScheduleConfig: cron expression or interval for schedule mode
  - ServerConfig: ops HTTP server (schedule mode only)
  - MetricsConfig: Prometheus Pushgateway for one-shot runs
  - LoggingConfig: zerolog level and format

# Usage Example

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(cfg.Snapshot.Dir)

# Validation

Validate() runs after loading. It rejects non-positive windows and
timeouts, empty or duplicate reference tags, malformed URLs, and cron
expressions that robfig/cron cannot parse. Schedule and server settings
are only checked in schedule mode.
*/
package config
