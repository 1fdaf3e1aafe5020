// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package main is the entry point for the Palette feature pipeline.
//
// The featurizer reads the published catalog and recent interaction history
// from DuckDB, derives the offline recommendation features (item vectors,
// user preference profiles, item similarity, user-item affinity and
// popularity rankings) and writes them as one versioned JSON snapshot.
//
// # Application Architecture
//
// Components are initialized in this order:
//
//  1. Configuration: defaults, config file, environment (Koanf v2)
//  2. Logging: zerolog with the configured level and format
//  3. Store: DuckDB reader, wrapped by a circuit breaker when enabled
//  4. Snapshot store: atomic writes plus gzip history
//  5. Run ledger: BadgerDB (holds the directory lock across processes)
//  6. Publisher: snapshot-published events over NATS (optional)
//  7. Engine: the feature pipeline itself
//
// # Run Modes
//
// RUN_MODE=once (default) performs a single run and exits. The exit code is
// 0 on success and 1 on failure. When METRICS_PUSH_URL is set the run's
// metrics are pushed to a Prometheus Pushgateway before exit.
//
// RUN_MODE=schedule keeps the process running under a suture supervisor
// tree. The pipeline fires on SCHEDULE_CRON (standard five-field syntax) or
// every SCHEDULE_INTERVAL, and an ops HTTP server exposes /healthz, /readyz,
// /metrics and /api/v1/runs.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. A run in progress observes the
// cancellation and fails without touching the current snapshot. In schedule
// mode the supervisor then stops the ops server gracefully.
//
// # Example Usage
//
//	export DUCKDB_PATH=/data/marketplace.duckdb
//	export SNAPSHOT_DIR=/data/snapshots
//	./featurizer
//
// Scheduled every six hours with events:
//
//	export RUN_MODE=schedule
//	export SCHEDULE_CRON="0 */6 * * *"
//	export NOTIFY_ENABLED=true
//	export NATS_URL=nats://nats:4222
//	./featurizer
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/palette/internal/config"
	"github.com/tomtom215/palette/internal/logging"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always executes.
func run() int {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("mode", cfg.Run.Mode).
		Str("db_path", cfg.Database.Path).
		Str("snapshot_dir", cfg.Snapshot.Dir).
		Bool("notify", cfg.Notify.Enabled).
		Msg("Starting Palette featurizer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initPipeline(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize pipeline")
		return 1
	}
	defer app.Close()

	if cfg.Run.Mode == config.ModeSchedule {
		return runSchedule(ctx, cfg, app)
	}
	return runOnce(ctx, cfg, app)
}
