// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

/*
Package services provides suture.Service wrappers for scheduled mode.

# Available Services

Pipeline Scheduler (PipelineService):
  - Drives recommend.Engine.Run on a cron expression (robfig/cron standard
    five-field syntax and descriptors such as @daily) or a fixed interval
  - Optional run on startup
  - Each run gets its own timeout derived from the service context
  - Failed runs are logged and the schedule continues
  - A trigger that lands while a run is active is skipped
  - Prunes the run ledger after each run when KeepRuns is set

Ops Server (OpsServer):
  - Runs the ops *http.Server and drains it on shutdown
  - A listener that exits on its own is reported as a failure so the
    api layer restarts it

# Usage

	pipelineSvc, err := services.NewPipelineService(engine, services.PipelineServiceConfig{
	    Cron:         cfg.Schedule.Cron,
	    Interval:     cfg.Schedule.Interval,
	    RunOnStartup: cfg.Schedule.RunOnStartup,
	    RunTimeout:   cfg.Schedule.RunTimeout,
	    Ledger:       runLedger,
	    KeepRuns:     cfg.Ledger.KeepRuns,
	}, logging.WithComponent("scheduler"))
	if err != nil {
	    return err
	}
	tree.AddPipelineService(pipelineSvc)

# Error Semantics

Serve returns ctx.Err() on shutdown. Any other return is a failure the
owning layer restarts with backoff.
*/
package services
