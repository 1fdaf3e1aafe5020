// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package main

import (
	"context"
	"time"

	"github.com/tomtom215/palette/internal/config"
	"github.com/tomtom215/palette/internal/logging"
	"github.com/tomtom215/palette/internal/metrics"
	"github.com/tomtom215/palette/internal/recommend"
)

// runOnce performs a single run and returns the exit code.
func runOnce(ctx context.Context, cfg *config.Config, app *pipelineComponents) int {
	res, runErr := app.engine.Run(ctx)

	// Housekeeping runs even when ctx was canceled mid-run.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if cfg.Ledger.KeepRuns > 0 {
		if removed, err := app.ledger.Prune(cleanupCtx, cfg.Ledger.KeepRuns); err != nil {
			logging.Warn().Err(err).Msg("Ledger prune failed")
		} else if removed > 0 {
			logging.Debug().Int("removed", removed).Msg("Ledger pruned")
		}
	}

	if cfg.Metrics.PushURL != "" {
		if err := metrics.Push(cleanupCtx, cfg.Metrics.PushURL, cfg.Metrics.Job); err != nil {
			logging.Warn().Err(err).Str("url", cfg.Metrics.PushURL).Msg("Metrics push failed")
		}
	}

	if runErr != nil {
		logging.Error().
			Err(runErr).
			Str("stage", recommend.FailedStage(runErr)).
			Msg("Pipeline run failed; previous snapshot left in place")
		return 1
	}

	logging.Info().
		Str("run_id", res.RunID).
		Str("path", res.Location.Path).
		Int("version", res.Location.Version).
		Str("checksum", res.Location.Checksum).
		Msg("Snapshot published")
	return 0
}
